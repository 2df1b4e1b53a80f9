package custodian

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/stakevault/nft-staking-service/internal/utils"
)

var ErrUnknownToken = errors.New("custodian: unknown token")

// MemoryClient is an in-process custodian used in memory mode and in tests.
// It keeps token ownership and approvals in maps and trusts its caller to be
// the operator it already vetted via IsAuthorized.
type MemoryClient struct {
	mu sync.RWMutex
	// owners maps token id to the holding address.
	owners map[uint64]string
	// approved maps token id to the single approved operator, cleared on
	// transfer like an ERC-721 token approval.
	approved map[uint64]string
	// operatorAll maps owner -> operator -> approved-for-all.
	operatorAll map[string]map[string]bool
}

func NewMemoryClient(seed map[string][]uint64) (*MemoryClient, error) {
	c := &MemoryClient{
		owners:      make(map[uint64]string),
		approved:    make(map[uint64]string),
		operatorAll: make(map[string]map[string]bool),
	}
	for owner, tokenIDs := range seed {
		for _, id := range tokenIDs {
			if err := c.Mint(owner, id); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Mint creates a token owned by owner. Seeding helper, not part of the
// custodian interface consumed by the ledger.
func (c *MemoryClient) Mint(owner string, tokenID uint64) error {
	normalized, err := utils.NormalizeAddress(owner)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.owners[tokenID]; exists {
		return errors.Errorf("custodian: token %d already minted", tokenID)
	}
	c.owners[tokenID] = normalized
	return nil
}

// Approve lets operator move the single given token.
func (c *MemoryClient) Approve(operator string, tokenID uint64) error {
	normalized, err := utils.NormalizeAddress(operator)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.owners[tokenID]; !exists {
		return errors.Wrapf(ErrUnknownToken, "token %d", tokenID)
	}
	c.approved[tokenID] = normalized
	return nil
}

// SetApprovalForAll lets operator move any of owner's tokens.
func (c *MemoryClient) SetApprovalForAll(owner, operator string, approved bool) error {
	normalizedOwner, err := utils.NormalizeAddress(owner)
	if err != nil {
		return err
	}
	normalizedOperator, err := utils.NormalizeAddress(operator)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := c.operatorAll[normalizedOwner]
	if ops == nil {
		ops = make(map[string]bool)
		c.operatorAll[normalizedOwner] = ops
	}
	ops[normalizedOperator] = approved
	return nil
}

func (c *MemoryClient) OwnerOf(_ context.Context, tokenID uint64) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	owner, ok := c.owners[tokenID]
	if !ok {
		return "", errors.Wrapf(ErrUnknownToken, "token %d", tokenID)
	}
	return owner, nil
}

func (c *MemoryClient) IsAuthorized(_ context.Context, owner, operator string, tokenID uint64) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	holder, ok := c.owners[tokenID]
	if !ok {
		return false, errors.Wrapf(ErrUnknownToken, "token %d", tokenID)
	}
	if holder != owner {
		return false, nil
	}
	if c.approved[tokenID] == operator {
		return true, nil
	}
	return c.operatorAll[owner][operator], nil
}

func (c *MemoryClient) TransferIn(_ context.Context, from, to string, tokenID uint64) error {
	return c.transfer(from, to, tokenID)
}

func (c *MemoryClient) TransferOut(_ context.Context, from, to string, tokenID uint64) error {
	return c.transfer(from, to, tokenID)
}

func (c *MemoryClient) transfer(from, to string, tokenID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	holder, ok := c.owners[tokenID]
	if !ok {
		return errors.Wrapf(ErrUnknownToken, "token %d", tokenID)
	}
	if holder != from {
		return errors.Errorf("custodian: token %d is held by %s, not %s", tokenID, holder, from)
	}
	c.owners[tokenID] = to
	delete(c.approved, tokenID)
	return nil
}
