package custodian

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	baseclient "github.com/stakevault/nft-staking-service/internal/clients/base"
	"github.com/stakevault/nft-staking-service/internal/config"
)

// Client talks to a remote custodian service over HTTP. The custodian holds
// the actual tokens; this service only instructs it to move them and never
// assumes a move happened without a success response.
type Client struct {
	config     *config.CustodianConfig
	httpClient *http.Client
}

func NewClient(cfg *config.CustodianConfig) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{},
	}
}

// Necessary for the BaseClient interface
func (c *Client) GetClientName() string {
	return "custodian"
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

type ownerResponse struct {
	Owner string `json:"owner"`
}

type authorizedResponse struct {
	Authorized bool `json:"authorized"`
}

type transferRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	TokenID uint64 `json:"token_id"`
}

type transferResponse struct {
	TokenID uint64 `json:"token_id"`
}

func (c *Client) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	opts := &baseclient.BaseClientOptions{
		Path: fmt.Sprintf("/v1/tokens/%d/owner", tokenID),
	}
	resp, err := baseclient.SendRequest[any, ownerResponse](ctx, c, http.MethodGet, opts, nil)
	if err != nil {
		return "", err
	}
	return resp.Owner, nil
}

func (c *Client) IsAuthorized(ctx context.Context, owner, operator string, tokenID uint64) (bool, error) {
	opts := &baseclient.BaseClientOptions{
		Path: fmt.Sprintf(
			"/v1/tokens/%d/authorized?owner=%s&operator=%s",
			tokenID, url.QueryEscape(owner), url.QueryEscape(operator),
		),
	}
	resp, err := baseclient.SendRequest[any, authorizedResponse](ctx, c, http.MethodGet, opts, nil)
	if err != nil {
		return false, err
	}
	return resp.Authorized, nil
}

func (c *Client) TransferIn(ctx context.Context, from, to string, tokenID uint64) error {
	return c.transfer(ctx, from, to, tokenID)
}

func (c *Client) TransferOut(ctx context.Context, from, to string, tokenID uint64) error {
	return c.transfer(ctx, from, to, tokenID)
}

func (c *Client) transfer(ctx context.Context, from, to string, tokenID uint64) error {
	input := transferRequest{From: from, To: to, TokenID: tokenID}
	opts := &baseclient.BaseClientOptions{
		Path: "/v1/transfers",
	}
	_, err := baseclient.SendRequest[transferRequest, transferResponse](ctx, c, http.MethodPost, opts, &input)
	if err != nil {
		return err
	}
	return nil
}
