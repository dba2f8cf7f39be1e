package probe

import (
	"fmt"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/webclient"
)

// Config carries the credentials some probes need. Probes without a required
// key degrade into contained error results instead of being skipped, so a
// scan always yields one finding per registered platform.
type Config struct {
	HIBPAPIKey   string
	ShodanAPIKey string
}

// Registry is the ordered, static set of probes a scan fans out to.
// Submission order is registry order; completion order is whatever the
// network gives us.
type Registry struct {
	probes []Probe
}

// NewRegistry validates platform uniqueness and wraps the probe list.
func NewRegistry(probes []Probe) (*Registry, error) {
	seen := make(map[string]struct{}, len(probes))
	for _, p := range probes {
		if p == nil {
			return nil, fmt.Errorf("probe registry: nil probe")
		}
		if _, dup := seen[p.Platform()]; dup {
			return nil, fmt.Errorf("probe registry: duplicate platform %q", p.Platform())
		}
		seen[p.Platform()] = struct{}{}
	}
	return &Registry{probes: probes}, nil
}

// Probes returns the registered probes in submission order.
func (r *Registry) Probes() []Probe {
	return r.probes
}

// Len returns the number of registered probes.
func (r *Registry) Len() int {
	return len(r.probes)
}

// DefaultRegistry builds the full platform set: six social, four
// professional, two breach databases, four public-record services and four
// forums, in the order findings are submitted.
func DefaultRegistry(cfg Config, wc webclient.WebClient, logger interfaces.Logger) (*Registry, error) {
	probes := []Probe{
		// Social
		NewFacebook(wc, logger),
		NewInstagram(wc, logger),
		NewTwitter(wc, logger),
		NewTikTok(wc, logger),
		NewSnapchat(wc, logger),
		NewPinterest(wc, logger),
		// Professional
		NewLinkedIn(wc, logger),
		NewGitHub(wc, logger),
		NewGitLab(wc, logger),
		NewBehance(wc, logger),
		// Breach databases
		NewHIBP(cfg.HIBPAPIKey, wc, logger),
		NewDehashed(wc, logger),
		// Public records
		NewShodan(cfg.ShodanAPIKey, wc, logger),
		NewGravatar(wc, logger),
		NewKeybase(wc, logger),
		NewAboutMe(wc, logger),
		// Forums
		NewReddit(wc, logger),
		NewStackOverflow(wc, logger),
		NewMedium(wc, logger),
		NewHackerNews(wc, logger),
	}
	return NewRegistry(probes)
}
