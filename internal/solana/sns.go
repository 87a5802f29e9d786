package solana

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// NameServiceProgramIDString is the address of the SPL Name Service program.
	NameServiceProgramIDString = "namesLPneVptA9Z5rqUDD9tMTWEJwofgaYwp8cawRkX"
	// SolTLDAuthorityString is the Bonfida TLD authority for .sol domains.
	SolTLDAuthorityString = "58PwtjSDuFHuUkYjH9BYnnQKHfwo9reZhC2zMJv9JPkx"

	nameHashPrefix = "SPL Name Service"
	// parent (32) + owner (32) + class (32)
	nameRecordHeaderLen = 96
)

var snsProgramID = solana.MustPublicKeyFromBase58(NameServiceProgramIDString)
var solTLDAuthority = solana.MustPublicKeyFromBase58(SolTLDAuthorityString)

// ResolveAddress takes a Solana address string or a .sol domain name and
// returns the base58 encoded public key of the owner.
func (c *Client) ResolveAddress(ctx context.Context, addrOrName string) (string, error) {
	addrOrName = strings.TrimSpace(addrOrName)
	if _, err := solana.PublicKeyFromBase58(addrOrName); err == nil {
		return addrOrName, nil
	}

	lower := strings.ToLower(addrOrName)
	if !strings.HasSuffix(lower, ".sol") {
		return "", fmt.Errorf("invalid address or .sol name: %s", addrOrName)
	}
	domainName := strings.TrimSuffix(lower, ".sol")
	if domainName == "" || strings.Contains(domainName, ".") {
		return "", fmt.Errorf("unsupported .sol name: %s", addrOrName)
	}

	nameAccountKey, err := deriveNameAccount(domainName)
	if err != nil {
		return "", fmt.Errorf("failed to derive name account PDA for %s: %w", addrOrName, err)
	}

	var accInfo *rpc.GetAccountInfoResult
	err = c.withRetry(ctx, "name "+addrOrName, func() error {
		var callErr error
		accInfo, callErr = c.rpcClient.GetAccountInfo(ctx, nameAccountKey)
		return callErr
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (accInfo == nil || accInfo.Value == nil)) {
		return "", fmt.Errorf("name account %s not found for .sol name %s", nameAccountKey, addrOrName)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get account info for %s (derived from %s): %w", nameAccountKey, addrOrName, err)
	}
	if accInfo.Value.Owner != snsProgramID {
		return "", fmt.Errorf("name account %s owner is not SNS program for .sol name %s", nameAccountKey, addrOrName)
	}

	var accountData []byte
	if accInfo.Value.Data != nil {
		accountData = accInfo.Value.Data.GetBinary()
	}
	if len(accountData) < nameRecordHeaderLen {
		return "", fmt.Errorf("name record data for %s is too short: got %d bytes, expected at least %d", addrOrName, len(accountData), nameRecordHeaderLen)
	}

	// The record owner is the second key of the header.
	return solana.PublicKeyFromBytes(accountData[32:64]).String(), nil
}

// deriveNameAccount derives the name account for a second-level .sol domain.
// Seeds: hashed name, zero name class, .sol TLD authority.
func deriveNameAccount(domain string) (solana.PublicKey, error) {
	key, _, err := solana.FindProgramAddress(
		[][]byte{
			deriveHashedName(domain),
			(solana.PublicKey{}).Bytes(),
			solTLDAuthority.Bytes(),
		},
		snsProgramID,
	)
	return key, err
}

func deriveHashedName(name string) []byte {
	sum := sha256.Sum256([]byte(nameHashPrefix + name))
	return sum[:]
}
