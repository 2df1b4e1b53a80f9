package rewardledger

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"

	baseclient "github.com/stakevault/nft-staking-service/internal/clients/base"
	"github.com/stakevault/nft-staking-service/internal/config"
	"github.com/stakevault/nft-staking-service/internal/utils"
)

// Client talks to a remote fungible balance service over HTTP. Amounts travel
// as decimal strings.
type Client struct {
	config     *config.RewardLedgerConfig
	httpClient *http.Client
}

func NewClient(cfg *config.RewardLedgerConfig) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{},
	}
}

// Necessary for the BaseClient interface
func (c *Client) GetClientName() string {
	return "reward-ledger"
}

func (c *Client) GetBaseURL() string {
	return c.config.Host
}

func (c *Client) GetDefaultRequestTimeout() int {
	return c.config.Timeout
}

func (c *Client) GetHttpClient() *http.Client {
	return c.httpClient
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

type transferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type transferResponse struct {
	Balance string `json:"balance"`
}

func (c *Client) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	opts := &baseclient.BaseClientOptions{
		Path: fmt.Sprintf("/v1/balances/%s", url.PathEscape(address)),
	}
	resp, err := baseclient.SendRequest[any, balanceResponse](ctx, c, http.MethodGet, opts, nil)
	if err != nil {
		return nil, err
	}
	balance, parseErr := utils.ParseBigInt(resp.Balance)
	if parseErr != nil {
		return nil, fmt.Errorf("malformed balance from reward ledger: %w", parseErr)
	}
	return balance, nil
}

func (c *Client) Transfer(ctx context.Context, to string, amount *big.Int) error {
	input := transferRequest{To: to, Amount: amount.String()}
	opts := &baseclient.BaseClientOptions{
		Path: "/v1/transfers",
	}
	_, err := baseclient.SendRequest[transferRequest, transferResponse](ctx, c, http.MethodPost, opts, &input)
	if err != nil {
		return err
	}
	return nil
}
