package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	v1 "github.com/emrgen/grantcore/apis/v1"
)

const requestTimeout = 30 * time.Second

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func checkMissingFlags(cmd *cobra.Command, flags []string) bool {
	var missingFlags []string
	var providedFlags []string
	for _, required := range flags {
		if !cmd.Flag(required).Changed {
			missingFlags = append(missingFlags, required)
		} else {
			value := cmd.Flag(required).Value.String()
			providedFlags = append(providedFlags, fmt.Sprintf("--%s=%s", required, value))
		}
	}

	if len(missingFlags) > 0 {
		var msg string
		for _, f := range missingFlags {
			msg += fmt.Sprintf("--%s ", f)
		}

		color.Red("missing: %s\n", msg)
		if len(providedFlags) > 0 {
			provided := strings.Join(providedFlags, " ")
			color.Green("provide: %s\n", provided)
		}

		cmd.Println("")

		_ = cmd.Usage()

		return true
	}

	return false
}

func printField(name, value string) {
	fmt.Printf("%s: %s\n", color.CyanString(name), value)
}

// printError prints a grpc error, with the head to merge against when a
// write lost a version race.
func printError(err error) {
	st, ok := status.FromError(err)
	if !ok {
		color.Red("error: %v", err)
		return
	}
	color.Red("%s: %s", st.Code(), st.Message())
	if head, ok := v1.CurrentVersion(err); ok {
		color.Yellow("current version: %s", head)
	}
}

// parseSections reads name=text pairs. A text starting with @ names a file
// to read the section from.
func parseSections(pairs []string) (map[string]string, error) {
	sections := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, text, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("section %q is not name=text", pair)
		}
		if path, ok := strings.CutPrefix(text, "@"); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			text = string(data)
		}
		sections[name] = text
	}
	return sections, nil
}

// readEmbedding reads a JSON array of floats from a file, or from stdin
// when path is "-".
func readEmbedding(path string) ([]float32, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	return embedding, nil
}

func shortTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(time.DateTime)
}
