// Package wallet talks to the managed wallet-signing service. Private keys
// never reach this process: the service signs and broadcasts on our behalf
// and returns the transaction hash.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/httpx"
)

// TxRequest is the payload handed to the signing service. Gas fields are
// strings in wei; either GasPrice or the two dynamic-fee fields are set,
// never both.
type TxRequest struct {
	FromAddress          string `json:"fromAddress"`
	ToAddress            string `json:"toAddress"`
	Data                 string `json:"data"`
	Value                string `json:"value"`
	GasLimit             string `json:"gasLimit"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

type TypedDataRequest struct {
	Domain      map[string]any `json:"domain"`
	Types       map[string]any `json:"types"`
	Message     map[string]any `json:"message"`
	PrimaryType string         `json:"primaryType"`
}

type Signature struct {
	Signature string `json:"signature"`
	Encoding  string `json:"encoding"`
}

// Sender is the capability the executor is constructed with. Tests inject a
// fake; production wires *Service.
type Sender interface {
	SendTransaction(ctx context.Context, chainID int64, req TxRequest) (string, error)
}

// Service is the HTTP client for the signing service.
type Service struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
}

func NewService(httpClient *httpx.Client, baseURL, apiKey string) *Service {
	return &Service{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

type sendTransactionResponse struct {
	Hash  string `json:"hash"`
	Error string `json:"error,omitempty"`
}

func (s *Service) SendTransaction(ctx context.Context, chainID int64, req TxRequest) (string, error) {
	if s.baseURL == "" {
		return "", tperr.New(tperr.KindValidation, "wallet service URL is not configured")
	}
	if strings.TrimSpace(req.FromAddress) == "" || strings.TrimSpace(req.ToAddress) == "" {
		return "", tperr.New(tperr.KindValidation, "transaction requires from and to addresses")
	}
	body, err := json.Marshal(map[string]any{
		"chainId":     chainID,
		"transaction": req,
	})
	if err != nil {
		return "", tperr.Wrap(tperr.KindInternal, "marshal send request", err)
	}

	var resp sendTransactionResponse
	url := fmt.Sprintf("%s/v1/sendTransaction", s.baseURL)
	if _, err := httpx.DoBodyJSON(ctx, s.http, http.MethodPost, url, body, s.headers(), &resp); err != nil {
		return "", tperr.Reclassify(tperr.KindSubmissionFailed, "wallet service send", err)
	}
	if resp.Error != "" {
		return "", tperr.New(tperr.KindSubmissionFailed, "wallet service rejected transaction")
	}
	if resp.Hash == "" {
		return "", tperr.New(tperr.KindSubmissionFailed, "wallet service returned no transaction hash")
	}
	return resp.Hash, nil
}

// SignTypedData requests an EIP-712 signature from the service, used for
// permit2-style quote execution.
func (s *Service) SignTypedData(ctx context.Context, chainID int64, req TypedDataRequest) (Signature, error) {
	if s.baseURL == "" {
		return Signature{}, tperr.New(tperr.KindValidation, "wallet service URL is not configured")
	}
	body, err := json.Marshal(map[string]any{
		"chainId":   chainID,
		"typedData": req,
	})
	if err != nil {
		return Signature{}, tperr.Wrap(tperr.KindInternal, "marshal sign request", err)
	}

	var resp Signature
	url := fmt.Sprintf("%s/v1/signTypedData", s.baseURL)
	if _, err := httpx.DoBodyJSON(ctx, s.http, http.MethodPost, url, body, s.headers(), &resp); err != nil {
		return Signature{}, tperr.Reclassify(tperr.KindSubmissionFailed, "wallet service sign", err)
	}
	if resp.Signature == "" {
		return Signature{}, tperr.New(tperr.KindSubmissionFailed, "wallet service returned empty signature")
	}
	return resp, nil
}

func (s *Service) headers() map[string]string {
	headers := map[string]string{}
	if s.apiKey != "" {
		headers["Authorization"] = "Bearer " + s.apiKey
	}
	return headers
}

var _ Sender = (*Service)(nil)
