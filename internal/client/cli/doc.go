// Package cli provides the FieldSync command-line client.
//
// Every command works against the local replica, so listing and editing
// observations needs no network. Only "sync" and "fetch" go online:
//
//	fieldsync sync                       pull, push pending edits, mark them synced
//	fieldsync sync status                watermark and queue size
//	fieldsync list projects
//	fieldsync list drawings [--project ID]
//	fieldsync list observations [--drawing ID]
//	fieldsync observe add --drawing ID [--page N --x X --y Y --type T --description D --panorama]
//	fieldsync observe edit ID [same flags]
//	fieldsync observe rm ID
//	fieldsync fetch DRAWING_ID [--dir DIR]    download the drawing file via its signed URL
package cli
