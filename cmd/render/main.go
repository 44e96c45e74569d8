// render substitutes tagged elements of an HTML document and prints the
// result, handy for checking a mail template before deploying it.
//
//	render --path index.html --match token=abc123 --match user=Alice
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mguentner/mailtoken/template"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

var (
	path    string
	matches []string
)

func parseMatches(raw []string) ([]template.Match, error) {
	result := make([]template.Match, 0, len(raw))
	for _, m := range raw {
		parts := strings.SplitN(m, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("Invalid match %q, expected id=value", m)
		}
		result = append(result, template.Match{ID: parts[0], Value: parts[1]})
	}
	return result, nil
}

func main() {
	flag.StringVar(&path, "path", "", "path to the HTML document")
	flag.StringArrayVar(&matches, "match", nil, "id=value, may be repeated")
	flag.Parse()
	if path == "" {
		log.Fatal().Msg("--path is required")
	}
	parsed, err := parseMatches(matches)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}
	rendered, err := template.Render(path, parsed)
	if err != nil {
		log.Fatal().Msgf("Could not render: %v", err)
	}
	fmt.Fprintln(os.Stdout, rendered.HTML)
	log.Info().Float64("elapsedMs", rendered.ElapsedMs()).Msg("Rendered")
}
