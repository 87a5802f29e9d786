package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	tokenmetadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hunterwarburton/tokenlens/internal/logger"
)

// MetaplexTokenMetadataProgramID is the program ID for the Metaplex Token Metadata program.
const MetaplexTokenMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

var metaplexProgramID = solana.MustPublicKeyFromBase58(MetaplexTokenMetadataProgramID)

// Byte offset of the decimals field in an SPL mint account:
// mint_authority COption<Pubkey> (36) + supply u64 (8).
const mintDecimalsOffset = 44

// OnChainMetadata is what the Metaplex metadata account and the mint tell us.
type OnChainMetadata struct {
	Mint          string
	Name          string
	Symbol        string
	URI           string
	Decimals      int
	DecimalsKnown bool
}

// deriveMetaplexMetadataPDA derives the Metaplex Token Metadata PDA for a given mint.
func deriveMetaplexMetadataPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			metaplexProgramID.Bytes(),
			mint.Bytes(),
		},
		metaplexProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find Metaplex metadata PDA: %w", err)
	}
	return pda, nil
}

// GetTokenMetadata reads the Metaplex metadata account and the mint in one
// getMultipleAccounts call. It returns nil, nil when the mint has no
// Metaplex metadata.
func (c *Client) GetTokenMetadata(ctx context.Context, mintAddress string) (*OnChainMetadata, error) {
	mintPk, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid mint address '%s': %w", mintAddress, err)
	}

	metadataPDA, err := deriveMetaplexMetadataPDA(mintPk)
	if err != nil {
		return nil, err
	}

	var res *rpc.GetMultipleAccountsResult
	err = c.withRetry(ctx, "mint "+mintAddress, func() error {
		var callErr error
		res, callErr = c.rpcClient.GetMultipleAccounts(ctx, metadataPDA, mintPk)
		return callErr
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("RPC error fetching Metaplex metadata account %s for mint %s: %w", metadataPDA, mintAddress, err)
	}
	if res == nil || len(res.Value) < 2 {
		return nil, fmt.Errorf("unexpected getMultipleAccounts result for mint %s", mintAddress)
	}

	metaAcct, mintAcct := res.Value[0], res.Value[1]
	if metaAcct == nil || metaAcct.Data == nil {
		logger.SolanaDebug("No Metaplex metadata account %s for mint %s", metadataPDA, mintAddress)
		return nil, nil
	}
	if metaAcct.Owner != metaplexProgramID {
		logger.SolanaDebug("Metaplex metadata account %s has wrong owner: %s", metadataPDA, metaAcct.Owner)
		return nil, nil
	}

	data := metaAcct.Data.GetBinary()
	if len(data) == 0 {
		return nil, fmt.Errorf("account data is empty for Metaplex metadata PDA %s", metadataPDA)
	}

	var onChainMeta tokenmetadata.Metadata
	if err := bin.NewBorshDecoder(data).Decode(&onChainMeta); err != nil {
		return nil, fmt.Errorf("failed to deserialize on-chain Metaplex metadata for %s: %w", mintAddress, err)
	}

	// On-chain strings are NUL padded to fixed widths.
	out := &OnChainMetadata{
		Mint:   mintAddress,
		Name:   strings.TrimSpace(strings.TrimRight(onChainMeta.Data.Name, "\x00")),
		Symbol: strings.TrimSpace(strings.TrimRight(onChainMeta.Data.Symbol, "\x00")),
		URI:    strings.TrimSpace(strings.TrimRight(onChainMeta.Data.Uri, "\x00")),
	}
	out.Decimals, out.DecimalsKnown = mintDecimals(mintAcct)
	return out, nil
}

// mintDecimals reads decimals from an SPL Token or Token-2022 mint account.
func mintDecimals(acct *rpc.Account) (int, bool) {
	if acct == nil || acct.Data == nil {
		return 0, false
	}
	if acct.Owner != solana.TokenProgramID && acct.Owner != solana.Token2022ProgramID {
		return 0, false
	}
	data := acct.Data.GetBinary()
	if len(data) <= mintDecimalsOffset {
		return 0, false
	}
	return int(data[mintDecimalsOffset]), true
}
