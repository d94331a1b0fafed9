// Package syncproto defines the JSON wire format shared by the sync server
// and the Go client: pull/push envelopes, per-table change sets and the
// record shapes of each syncable table.
//
// Every record is keyed by its stable id ("id"). Server ids travel only as
// an informational "server_id" backlink and parent references are always
// expressed as parent stable ids.
package syncproto
