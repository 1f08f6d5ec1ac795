package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/poyrazK/gatekeep/internal/core/domain"
	"github.com/poyrazK/gatekeep/internal/testutil"
)

func TestRun_Create(t *testing.T) {
	repo := new(testutil.MockRepo)
	var saved *domain.APIKey
	repo.On("CreateAPIKey", mock.AnythingOfType("*domain.APIKey")).Run(func(args mock.Arguments) {
		saved = args.Get(0).(*domain.APIKey)
	}).Return(nil)

	var out bytes.Buffer
	err := run([]string{"apikey", "create", "-user", "u1", "-role", "admin", "-name", "ci", "-days", "30"}, &out, repo)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if saved.UserID != "u1" || saved.Role != domain.RoleAdmin || saved.Name != "ci" {
		t.Errorf("saved key: %+v", saved)
	}
	if !saved.Active {
		t.Error("new keys must start active")
	}
	if saved.ExpiresAt == nil || time.Until(*saved.ExpiresAt) > 31*24*time.Hour {
		t.Errorf("expiry out of range: %v", saved.ExpiresAt)
	}

	// The printed value hashes to exactly what was stored.
	var printed string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "VALUE:") {
			printed = strings.TrimSpace(strings.TrimPrefix(line, "VALUE:"))
		}
	}
	if !strings.HasPrefix(printed, domain.APIKeyPrefix) {
		t.Fatalf("printed key %q lacks the %s prefix", printed, domain.APIKeyPrefix)
	}
	hash := sha256.Sum256([]byte(printed))
	if hex.EncodeToString(hash[:]) != saved.KeyHash {
		t.Error("stored hash does not match the printed value")
	}
	if strings.Contains(out.String(), saved.KeyHash) {
		t.Error("hash should not be printed")
	}
}

func TestRun_CreateRejections(t *testing.T) {
	repo := new(testutil.MockRepo)
	var out bytes.Buffer

	if err := run([]string{"apikey", "create", "-role", "user"}, &out, repo); err == nil {
		t.Error("expected error without -user")
	}
	if err := run([]string{"apikey", "create", "-user", "u1", "-role", "root"}, &out, repo); err == nil {
		t.Error("expected error for unknown role")
	}
	repo.AssertNotCalled(t, "CreateAPIKey", mock.Anything)
}

func TestRun_List(t *testing.T) {
	repo := new(testutil.MockRepo)
	repo.On("ListAPIKeys", "u1").Return([]domain.APIKey{
		{ID: "k1", Name: "ci", Role: domain.RoleUser, KeyPrefix: "gk_12345", Active: true},
		{ID: "k2", Name: "old", Role: domain.RoleUser, KeyPrefix: "gk_67890", Active: false},
	}, nil)

	var out bytes.Buffer
	if err := run([]string{"apikey", "list", "-user", "u1"}, &out, repo); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "active") || !strings.Contains(out.String(), "revoked") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRun_Revoke(t *testing.T) {
	repo := new(testutil.MockRepo)
	repo.On("DeactivateAPIKey", "k1").Return(nil)

	var out bytes.Buffer
	if err := run([]string{"apikey", "revoke", "-id", "k1"}, &out, repo); err != nil {
		t.Fatalf("run: %v", err)
	}
	repo.AssertExpectations(t)

	if err := run([]string{"apikey", "revoke"}, &out, repo); err == nil {
		t.Error("expected error without -id")
	}
}

func TestRun_UnknownSubcommand(t *testing.T) {
	repo := new(testutil.MockRepo)
	var out bytes.Buffer

	if err := run([]string{"apikey"}, &out, repo); err == nil {
		t.Error("expected error without a subcommand")
	}
	if err := run([]string{"apikey", "frob"}, &out, repo); err == nil {
		t.Error("expected error for unknown subcommand")
	}
}
