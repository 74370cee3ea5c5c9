package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jerometseng/requestlog/internal/docpath"
)

var classifyMarkers []string

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <path>...",
	Short: "Report whether paths are API documentation resources",
	Long: `Classify prints one line per path: "true" or "false", a tab, then the path.

Matching is a case-insensitive substring test against the documentation
markers (docs.markers, default: swagger-resources, v2/api-docs, v3/api-docs,
webjars, swagger-ui.html). Absolute URLs are reduced to their path first.

Example:
  requestlog classify /v2/api-docs /api/users/123
  requestlog classify 'http://localhost:8080/api/users?ref=v2/api-docs'
  requestlog classify --marker /openapi.json /openapi.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringSliceVar(&classifyMarkers, "marker", nil, "override documentation markers (repeatable)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	markers := classifyMarkers
	if len(markers) == 0 {
		markers = viper.GetStringSlice("docs.markers")
	}

	c, err := docpath.New(markers)
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, p := range args {
		ok, err := classifyArg(c, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%t\t%s\n", ok, p)
	}
	return nil
}

// classifyArg classifies a bare path, or the path of an absolute URL
func classifyArg(c *docpath.Classifier, arg string) (bool, error) {
	u, err := url.Parse(arg)
	if err != nil || !u.IsAbs() {
		return c.IsDocumentationResource(arg), nil
	}
	ok, err := c.MatchURL(u)
	if err != nil {
		return false, fmt.Errorf("classify %s: %w", arg, err)
	}
	return ok, nil
}
