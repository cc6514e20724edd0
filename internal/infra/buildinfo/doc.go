// Package buildinfo exposes version information injected at build time:
//
//	go build -ldflags "-X github.com/yndnr/tokentables/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/tokentables/internal/infra/buildinfo.Commit=abc123"
//
// Values not injected fall back to the module's embedded build info.
package buildinfo
