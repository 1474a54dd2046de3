package render

import (
	"fmt"
	"io"

	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// ArtifactsRenderer renders the compiled contracts found in the build output
type ArtifactsRenderer struct {
	out   io.Writer
	color bool
}

// NewArtifactsRenderer creates a new artifacts renderer
func NewArtifactsRenderer(out io.Writer, color bool) *ArtifactsRenderer {
	return &ArtifactsRenderer{
		out:   out,
		color: color,
	}
}

func (r *ArtifactsRenderer) Render(result *usecase.ListArtifactsResult) error {
	if len(result.Artifacts) == 0 {
		fmt.Fprintln(r.out, "No artifacts found")
		return nil
	}

	rows := make(TableData, 0, len(result.Artifacts))
	for _, a := range result.Artifacts {
		rows = append(rows, []string{a.Name, a.SourceName, artifactKind(a)})
	}

	fmt.Fprintln(r.out, renderTable([]string{"CONTRACT", "SOURCE", "KIND"}, rows))
	return nil
}

func artifactKind(a *models.Artifact) string {
	switch {
	case !a.IsDeployable():
		return "abstract"
	case a.NeedsLinking():
		return "needs linking"
	case a.HasMethod("proxiableUUID"):
		return "uups"
	default:
		return "contract"
	}
}
