package dockerrun

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func containerName(prefix string) string {
	if prefix == "" {
		prefix = "studio-run"
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

func platformOf(platform string) *ocispec.Platform {
	if platform == "" {
		return nil
	}
	parts := strings.SplitN(platform, "/", 2)
	p := &ocispec.Platform{OS: parts[0]}
	if len(parts) == 2 {
		p.Architecture = parts[1]
	}
	return p
}
