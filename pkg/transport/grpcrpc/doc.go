// Package grpcrpc carries guardian calls over gRPC. There is no generated
// stub: every method is invoked on ServiceName with the envelope and the
// response encoded as google.protobuf.Value, so new guardian methods need no
// client changes.
package grpcrpc
