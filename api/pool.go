package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zknote/shieldpool/ledger"
	"github.com/zknote/shieldpool/tree"
	"github.com/zknote/shieldpool/types"
	"github.com/zknote/shieldpool/util"
)

// RootResponse reports the current accumulator state.
type RootResponse struct {
	Root      *types.BigInt `json:"root"`
	LeafCount uint64        `json:"leafCount"`
}

// KnownRootResponse reports whether a root is inside the history window.
type KnownRootResponse struct {
	Known bool `json:"known"`
}

// NullifierResponse reports whether a nullifier has been spent.
type NullifierResponse struct {
	Spent bool `json:"spent"`
}

// EventsResponse is the ordered insertion feed slice.
type EventsResponse struct {
	Events []*ledger.Event `json:"events"`
}

// parseFieldParam parses a field element URL parameter, given either as a
// decimal string or as 0x-prefixed hex.
func parseFieldParam(r *http.Request, name string) (*big.Int, bool) {
	raw := chi.URLParam(r, name)
	if len(raw) >= 2 && (raw[:2] == "0x" || raw[:2] == "0X") {
		return new(big.Int).SetString(util.TrimHex(raw), 16)
	}
	return new(big.Int).SetString(raw, 10)
}

// root returns the current accumulator root and leaf count.
func (a *API) root(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &RootResponse{
		Root:      (*types.BigInt)(a.ledger.Root()),
		LeafCount: a.ledger.LeafCount(),
	})
}

// knownRoot reports whether the root given as a URL parameter is still
// accepted as a proof anchor.
func (a *API) knownRoot(w http.ResponseWriter, r *http.Request) {
	root, ok := parseFieldParam(r, RootURLParam)
	if !ok {
		ErrMalformedParam.With("expected decimal or hex root").Write(w)
		return
	}
	httpWriteJSON(w, &KnownRootResponse{Known: a.ledger.IsKnownRoot(root)})
}

// nullifierStatus reports whether the nullifier given as a URL parameter
// has already been recorded.
func (a *API) nullifierStatus(w http.ResponseWriter, r *http.Request) {
	nullifier, ok := parseFieldParam(r, NullifierURLParam)
	if !ok {
		ErrMalformedParam.With("expected decimal or hex nullifier").Write(w)
		return
	}
	spent, err := a.ledger.IsSpent(nullifier)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &NullifierResponse{Spent: spent})
}

// submitTransfer accepts a transfer submission and applies it to the ledger.
func (a *API) submitTransfer(w http.ResponseWriter, r *http.Request) {
	sub := &ledger.TransferSubmission{}
	if err := json.NewDecoder(r.Body).Decode(sub); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	receipt, err := a.ledger.SubmitTransfer(sub)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httpWriteJSON(w, receipt)
}

// submitWithdraw accepts a withdraw submission and applies it to the ledger.
func (a *API) submitWithdraw(w http.ResponseWriter, r *http.Request) {
	sub := &ledger.WithdrawSubmission{}
	if err := json.NewDecoder(r.Body).Decode(sub); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	receipt, err := a.ledger.SubmitWithdraw(sub)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httpWriteJSON(w, receipt)
}

// events returns the insertion feed starting at the optional ?from=N leaf
// index.
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	var from uint64
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			ErrMalformedParam.With("expected numeric 'from'").Write(w)
			return
		}
		from = parsed
	}
	events, err := a.ledger.Events(from)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &EventsResponse{Events: events})
}

// writeLedgerError maps ledger errors to their API error codes.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNullifierSpent):
		ErrNullifierSpent.Write(w)
	case errors.Is(err, ledger.ErrUnknownRoot):
		ErrUnknownRoot.Write(w)
	case errors.Is(err, ledger.ErrInvalidProof):
		ErrInvalidProof.WithErr(err).Write(w)
	case errors.Is(err, ledger.ErrMalformedSubmission):
		ErrMalformedSubmission.WithErr(err).Write(w)
	case errors.Is(err, tree.ErrTreeFull):
		ErrPoolFull.Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}
