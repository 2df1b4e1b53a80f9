package rewardledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/stakevault/nft-staking-service/internal/utils"
)

var ErrInsufficientBalance = errors.New("rewardledger: insufficient balance")

// MemoryClient is an in-process balance store used in memory mode and in
// tests. Transfers are debited from the account it was constructed with.
type MemoryClient struct {
	mu       sync.RWMutex
	account  string
	balances map[string]*big.Int
}

func NewMemoryClient(account string, balances map[string]string) (*MemoryClient, error) {
	normalized, err := utils.NormalizeAddress(account)
	if err != nil {
		return nil, err
	}
	c := &MemoryClient{
		account:  normalized,
		balances: make(map[string]*big.Int),
	}
	for address, amount := range balances {
		parsed, err := utils.ParseBigInt(amount)
		if err != nil {
			return nil, errors.Wrapf(err, "balance for %s", address)
		}
		if err := c.Credit(address, parsed); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Credit adds amount to an address's balance. Seeding helper.
func (c *MemoryClient) Credit(address string, amount *big.Int) error {
	normalized, err := utils.NormalizeAddress(address)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.balances[normalized]
	if !ok {
		current = new(big.Int)
		c.balances[normalized] = current
	}
	current.Add(current, amount)
	return nil
}

func (c *MemoryClient) BalanceOf(_ context.Context, address string) (*big.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	balance, ok := c.balances[address]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(balance), nil
}

func (c *MemoryClient) Transfer(_ context.Context, to string, amount *big.Int) error {
	normalized, err := utils.NormalizeAddress(to)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.balances[c.account]
	if from == nil || from.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "account %s", c.account)
	}
	from.Sub(from, amount)
	dest, ok := c.balances[normalized]
	if !ok {
		dest = new(big.Int)
		c.balances[normalized] = dest
	}
	dest.Add(dest, amount)
	return nil
}
