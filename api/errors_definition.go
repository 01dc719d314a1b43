package api

import (
	"fmt"
	"net/http"
)

// Error codes in the 40001-49999 range are the client's fault, returned with
// HTTP Status 400 or 404. Codes 50001-59999 are the server's fault. Never
// change or reuse an existing code, only append.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrNullifierSpent      = Error{Code: 40003, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("nullifier already spent")}
	ErrUnknownRoot         = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown or expired merkle root")}
	ErrInvalidProof        = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid proof")}
	ErrMalformedSubmission = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed submission")}
	ErrMalformedParam      = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed URL parameter")}
	ErrPoolFull            = Error{Code: 40008, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("accumulator is full")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
