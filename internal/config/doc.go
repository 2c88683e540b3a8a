// Package config loads fetchq settings from a CUE file.
//
// The file is unified with an embedded schema before decoding, so type and
// enum mistakes are reported with CUE positions. Durations are written as
// Go duration strings ("250ms", "5m"). Unset fields keep their Default
// values; relative fixture and snapshot paths are resolved against the
// config file's directory.
//
// Example:
//
//	debounce:       "100ms"
//	lookup_timeout: "5s"
//	metadata_ttl:   "10m"
//	rate_limit:     20
//	burst:          5
//	fixture:        "metadata/crm.yaml"
//	format:         "json"
package config
