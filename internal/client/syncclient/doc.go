// Package syncclient talks to the FieldSync server and drives a full
// synchronization round against the local replica.
//
// # Overview
//
//  1. HTTPClient implements the pull and push endpoints. A 409 response is
//     decoded into a *common.ConflictError; 401 maps to ErrUnauthorized and
//     transport failures to ErrUnavailable.
//  2. Synchronizer runs pull, apply, push and mark-synced in order. A push
//     conflict triggers a fresh pull and a replay of the local queue, up to a
//     bounded number of attempts.
//
// Errors are matched with errors.Is / errors.As.
package syncclient
