//go:build docs

package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/cmd"
)

const (
	docsDir        = "docs"
	readmeTemplate = "README.md.tpl"
	readmeFile     = "README.md"

	cliMarker      = "{{ .CLI_REFERENCE }}"
	commandsMarker = "{{ .COMMANDS }}"
)

// pageHeader is prepended to every generated command page.
const pageHeader = "<!-- Generated by `go run -tags docs ./docs`, do not edit. -->\n\n# %s\n\n"

func pageTitle(filename string) string {
	name := strings.TrimSuffix(path.Base(filename), ".md")
	return strings.ReplaceAll(name, "_", " ")
}

func linkHandler(filename string) string {
	if filename == settings.CmdName+".md" {
		// The root command page is the README.
		return readmeFile
	}
	return path.Join(docsDir, filename)
}

// commandsIndex lists the subcommands with their short description.
func commandsIndex(root *cobra.Command) string {
	var b strings.Builder
	b.WriteString("| Command | Description |\n|---|---|\n")
	for _, c := range root.Commands() {
		if !c.IsAvailableCommand() || c.IsAdditionalHelpTopicCommand() {
			continue
		}
		name := strings.ReplaceAll(c.CommandPath(), " ", "_")
		fmt.Fprintf(&b, "| [`%s`](%s) | %s |\n", c.CommandPath(), linkHandler(name+".md"), c.Short)
	}

	return b.String()
}

func run() error {
	root := cmd.NewCommand(cmd.NewOptions(
		cmd.WithLogger(log.New(os.Stderr).Level(log.InfoLevel)),
	))

	// Generate CLI docs.
	prepender := func(filename string) string {
		return fmt.Sprintf(pageHeader, pageTitle(filename))
	}
	if err := doc.GenMarkdownTreeCustom(root, docsDir, prepender, linkHandler); err != nil {
		return fmt.Errorf("failed to generate CLI docs: %w", err)
	}

	tpl, err := os.ReadFile(readmeTemplate)
	if err != nil {
		return fmt.Errorf("failed to read README template: %w", err)
	}
	rootDocs, err := os.ReadFile(path.Join(docsDir, settings.CmdName+".md"))
	if err != nil {
		return fmt.Errorf("failed to read root command docs: %w", err)
	}

	readme := strings.NewReplacer(
		cliMarker, string(rootDocs),
		commandsMarker, commandsIndex(root),
	).Replace(string(tpl))

	return os.WriteFile(readmeFile, []byte(readme), 0644)
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
