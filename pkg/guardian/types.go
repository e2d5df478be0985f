package guardian

import (
	"encoding/json"
)

// ServerStatus is the lifecycle phase a guardian reports from status. The
// client never enforces it; it only decides which calls make sense.
type ServerStatus string

const (
	ServerAwaitingPassword       ServerStatus = "AwaitingPassword"
	ServerSharingConfigGenParams ServerStatus = "SharingConfigGenParams"
	ServerReadyForConfigGen      ServerStatus = "ReadyForConfigGen"
	ServerConfigGenFailed        ServerStatus = "ConfigGenFailed"
	ServerVerifyingConfigs       ServerStatus = "VerifyingConfigs"
	ServerVerifiedConfigs        ServerStatus = "VerifiedConfigs"
	ServerConsensusRunning       ServerStatus = "ConsensusRunning"
	ServerUpgrading              ServerStatus = "Upgrading"
)

// IsSetup reports whether the setup method set is expected to be served.
func (s ServerStatus) IsSetup() bool {
	switch s {
	case ServerAwaitingPassword, ServerSharingConfigGenParams, ServerReadyForConfigGen,
		ServerConfigGenFailed, ServerVerifyingConfigs, ServerVerifiedConfigs:
		return true
	}
	return false
}

// StatusResponse is the result of the status method.
type StatusResponse struct {
	Server    ServerStatus     `json:"server"`
	Consensus *ConsensusStatus `json:"consensus,omitempty"`
}

// ConsensusStatus is present once the federation is running. Peer counts
// exclude the guardian answering the call.
type ConsensusStatus struct {
	PeersOnline  int                        `json:"peers_online"`
	PeersOffline int                        `json:"peers_offline"`
	PeersFlagged int                        `json:"peers_flagged"`
	StatusByPeer map[string]json.RawMessage `json:"status_by_peer,omitempty"`
}

// PeerHealth classifies how many guardians are reachable.
type PeerHealth string

const (
	HealthAll      PeerHealth = "all"
	HealthQuorum   PeerHealth = "quorum"
	HealthDegraded PeerHealth = "degraded"
)

// GuardiansOnline counts the answering guardian plus its online peers against
// the federation size. Without a consensus block only the answering guardian
// is known to be up and one peer is assumed down.
func (s *StatusResponse) GuardiansOnline() (online, total int) {
	if s == nil || s.Consensus == nil {
		return 1, 2
	}
	online = s.Consensus.PeersOnline + 1
	return online, online + s.Consensus.PeersOffline
}

// Health classifies GuardiansOnline: everyone, at least two thirds, or fewer.
func (s *StatusResponse) Health() PeerHealth {
	online, total := s.GuardiansOnline()
	switch {
	case online == total:
		return HealthAll
	case 3*online >= 2*total:
		return HealthQuorum
	default:
		return HealthDegraded
	}
}

// PeerHashMap maps each peer's name to the hash of the config it generated.
type PeerHashMap map[string]string

// AuditSummary is the result of audit. Amounts are in millisatoshis.
type AuditSummary struct {
	NetAssets       int64                    `json:"net_assets"`
	ModuleSummaries map[string]ModuleSummary `json:"module_summaries"`
}

// ModuleSummary is one module's share of the audit.
type ModuleSummary struct {
	NetAssets int64  `json:"net_assets"`
	Kind      string `json:"kind,omitempty"`
}

// WalletNetAssets returns the on-chain wallet module's net assets in msats,
// zero when the federation has no wallet module.
func (a *AuditSummary) WalletNetAssets() int64 {
	if a == nil {
		return 0
	}
	return a.ModuleSummaries["wallet"].NetAssets
}

// Payloads the client forwards without interpreting.
type (
	ConfigGenParams  = json.RawMessage
	ConsensusState   = json.RawMessage
	Versions         = json.RawMessage
	FederationStatus = json.RawMessage
	ConfigResponse   = json.RawMessage
)

// ModuleOp names an operation exposed by a federation module.
type ModuleOp string

// LightningListGateways lists the gateways registered with the lightning
// module.
const LightningListGateways ModuleOp = "list_gateways"
