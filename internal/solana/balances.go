package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hunterwarburton/tokenlens/internal/core"
	"github.com/hunterwarburton/tokenlens/internal/logger"
)

// parsedTokenAccount is the jsonParsed shape of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount         string   `json:"amount"`
				Decimals       int      `json:"decimals"`
				UIAmount       *float64 `json:"uiAmount"`
				UIAmountString string   `json:"uiAmountString"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

var tokenPrograms = []solana.PublicKey{solana.TokenProgramID, solana.Token2022ProgramID}

// GetTokenBalances returns aggregated SPL token balances for the given owner
// (wallet) address, one entry per mint with the UI amount already adjusted
// for decimals. Zero balances are dropped. Metadata is left unset.
func (c *Client) GetTokenBalances(ctx context.Context, ownerPubkeyStr string) ([]core.Holding, error) {
	ownerPk, err := solana.PublicKeyFromBase58(ownerPubkeyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid owner pubkey '%s': %w", ownerPubkeyStr, err)
	}

	aggregated := make(map[string]*core.Holding)
	var order []string

	for i, programID := range tokenPrograms {
		programID := programID
		var accts *rpc.GetTokenAccountsResult
		err := c.withRetry(ctx, "token accounts of "+ownerPubkeyStr, func() error {
			var callErr error
			accts, callErr = c.rpcClient.GetTokenAccountsByOwner(ctx, ownerPk,
				&rpc.GetTokenAccountsConfig{ProgramId: &programID},
				&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed},
			)
			return callErr
		})
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("failed to get token accounts by owner: %w", err)
			}
			// Token-2022 support varies between RPC providers.
			logger.SolanaWarn("Token-2022 accounts for %s unavailable: %v", ownerPubkeyStr, err)
			continue
		}
		if accts == nil {
			continue
		}

		for _, rawAcct := range accts.Value {
			if rawAcct == nil || rawAcct.Account.Data == nil {
				continue
			}
			rawJSON := rawAcct.Account.Data.GetRawJSON()
			if rawJSON == nil {
				continue
			}
			var parsed parsedTokenAccount
			if err := json.Unmarshal(rawJSON, &parsed); err != nil {
				logger.SolanaDebug("Skipping token account %s: %v", rawAcct.Pubkey, err)
				continue
			}
			info := parsed.Parsed.Info
			if info.Mint == "" {
				continue
			}
			amount, ok := uiAmount(info.TokenAmount.UIAmount, info.TokenAmount.UIAmountString)
			if !ok {
				continue
			}

			tokenAcctAddr := rawAcct.Pubkey.String()
			current, exists := aggregated[info.Mint]
			if !exists {
				aggregated[info.Mint] = &core.Holding{
					Mint:         info.Mint,
					Amount:       amount,
					Decimals:     info.TokenAmount.Decimals,
					TokenAccount: tokenAcctAddr,
				}
				order = append(order, info.Mint)
				continue
			}
			current.Amount += amount
			if current.TokenAccount == "" {
				current.TokenAccount = tokenAcctAddr
			}
		}
	}

	result := make([]core.Holding, 0, len(order))
	for _, mint := range order {
		h := aggregated[mint]
		if h.Amount == 0 {
			continue
		}
		result = append(result, *h)
	}
	return result, nil
}

func uiAmount(v *float64, s string) (float64, bool) {
	if v != nil {
		return *v, true
	}
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
