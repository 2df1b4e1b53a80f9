package handlers

import (
	"context"
	"net/http"

	"github.com/stakevault/nft-staking-service/internal/config"
	"github.com/stakevault/nft-staking-service/internal/events"
	"github.com/stakevault/nft-staking-service/internal/services"
	"github.com/stakevault/nft-staking-service/internal/types"
)

// maxPaginationKeyLength bounds the opaque pagination token a client may hand
// back; anything longer is rejected before the db layer tries to decode it.
const maxPaginationKeyLength = 1024

type Handler struct {
	config   *config.Config
	services *services.Services
	bus      *events.Bus
}

type paginationResponse struct {
	NextKey string `json:"next_key"`
}

type PublicResponse[T any] struct {
	Data       T                   `json:"data"`
	Pagination *paginationResponse `json:"pagination,omitempty"`
}

type Result struct {
	Data   interface{}
	Status int
}

// NewResult returns a successful result, with default status code 200
func NewResultWithPagination[T any](data T, pageToken string) *Result {
	res := &PublicResponse[T]{Data: data, Pagination: &paginationResponse{NextKey: pageToken}}
	return &Result{Data: res, Status: http.StatusOK}
}

func NewResult[T any](data T) *Result {
	res := &PublicResponse[T]{Data: data}
	return &Result{Data: res, Status: http.StatusOK}
}

func New(
	ctx context.Context, cfg *config.Config, services *services.Services, bus *events.Bus,
) (*Handler, error) {
	return &Handler{
		config:   cfg,
		services: services,
		bus:      bus,
	}, nil
}

func parsePaginationQuery(r *http.Request) (string, *types.Error) {
	pageKey := r.URL.Query().Get("pagination_key")
	if len(pageKey) > maxPaginationKeyLength {
		return "", types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "pagination_key is too long",
		)
	}
	return pageKey, nil
}

func parseAddressQuery(r *http.Request, name string) (string, *types.Error) {
	address := r.URL.Query().Get(name)
	if address == "" {
		return "", types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, name+" is required",
		)
	}
	return address, nil
}
