package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPasswords makes readPassword return replies in order.
func stubPasswords(t *testing.T, replies ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(fd int) ([]byte, error) {
		if len(replies) == 0 {
			return nil, errors.New("no more input")
		}
		next := replies[0]
		replies = replies[1:]
		return []byte(next), nil
	}
}

func TestPromptPassword(t *testing.T) {
	stubPasswords(t, "hunter2")

	var out bytes.Buffer
	pw, err := promptPassword(&out, "Admin password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
	assert.Equal(t, "Admin password: \n", out.String())
}

func TestPromptPassword_ReadError(t *testing.T) {
	stubPasswords(t)

	_, err := promptPassword(&bytes.Buffer{}, "Admin password: ")
	assert.ErrorContains(t, err, "failed to read password")
}

func TestPromptNewPassword(t *testing.T) {
	tests := []struct {
		name    string
		replies []string
		want    string
		wantErr string
	}{
		{"matching", []string{"s3cret", "s3cret"}, "s3cret", ""},
		{"mismatch", []string{"s3cret", "secret"}, "", "passwords do not match"},
		{"empty", []string{""}, "", "password must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubPasswords(t, tt.replies...)

			pw, err := promptNewPassword(&bytes.Buffer{})
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pw)
		})
	}
}

func TestReadSecretLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"newline", "hunter2\n", "hunter2", false},
		{"crlf", "hunter2\r\n", "hunter2", false},
		{"no trailing newline", "hunter2", "hunter2", false},
		{"only first line", "hunter2\nextra\n", "hunter2", false},
		{"keeps spaces", " pass word \n", " pass word ", false},
		{"empty input", "", "", true},
		{"blank line", "\n", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readSecretLine(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
