package app

import (
	"context"
	"fmt"

	"cybermaze-gateway/internal/domain"
)

// Mode selects which data source answers the uniform operation set.
// It is fixed at deploy time; routing is all-or-nothing so the UI
// never mixes archived and live state on one page.
type Mode string

const (
	ModeArchive Mode = "archive"
	ModeLive    Mode = "live"
)

func (m Mode) Valid() bool {
	return m == ModeArchive || m == ModeLive
}

// Select routes every Client operation to the archive service or the
// live client according to mode. PlatformOps are not routed here: they
// stay bound to the live client regardless of mode.
func Select(mode Mode, archive, live Client) Client {
	if mode == ModeArchive {
		return archive
	}
	return live
}

// UnavailablePlatform stands in for PlatformOps when no live platform
// is configured. Every call reports the disabled status gracefully;
// archive deployments expect these operations to fail.
type UnavailablePlatform struct{}

func (UnavailablePlatform) ListTokens(context.Context) ([]domain.Token, error) {
	return nil, platformUnavailable("token listing")
}

func (UnavailablePlatform) CreateToken(context.Context, string) (domain.Token, error) {
	return domain.Token{}, platformUnavailable("token creation")
}

func (UnavailablePlatform) DeleteToken(context.Context, int) error {
	return platformUnavailable("token deletion")
}

func (UnavailablePlatform) GetContainer(context.Context, int) (domain.ContainerInfo, error) {
	return domain.ContainerInfo{}, platformUnavailable("challenge instances")
}

func (UnavailablePlatform) CreateContainer(context.Context, int) (domain.ContainerInfo, error) {
	return domain.ContainerInfo{}, platformUnavailable("challenge instances")
}

func (UnavailablePlatform) RenewContainer(context.Context, int) (domain.ContainerInfo, error) {
	return domain.ContainerInfo{}, platformUnavailable("challenge instances")
}

func (UnavailablePlatform) DestroyContainer(context.Context) error {
	return platformUnavailable("challenge instances")
}

func platformUnavailable(operation string) error {
	return fmt.Errorf("no live platform configured, %s is unavailable: %w", operation, domain.ErrDisabled)
}
