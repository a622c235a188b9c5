package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raaihank/loggov/internal/governance"
)

func newRedactCmd() *cobra.Command {
	var (
		documentPath string
		jsonLines    bool
	)

	cmd := &cobra.Command{
		Use:   "redact",
		Short: "Govern stdin line by line and write the result to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDocumentFlag(documentPath)
			if err != nil {
				return err
			}
			return redactLines(cmd.InOrStdin(), cmd.OutOrStdout(), cfg, jsonLines)
		},
	}

	cmd.Flags().StringVarP(&documentPath, "governance", "g", "", "Governance document (default: built-in rules)")
	cmd.Flags().BoolVar(&jsonLines, "json", false, "Treat each line as a JSON payload")
	return cmd
}

// loadDocumentFlag loads an explicitly named document; unlike LoadFile a
// missing file is an error.
func loadDocumentFlag(path string) (*governance.Config, error) {
	if path == "" {
		return governance.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read governance document: %w", err)
	}
	return governance.ParseDocument(data, path)
}

func redactLines(in io.Reader, out io.Writer, cfg *governance.Config, jsonLines bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	w := bufio.NewWriter(out)

	line := 0
	for scanner.Scan() {
		line++
		governed, err := redactLine(scanner.Text(), cfg, jsonLines)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := fmt.Fprintln(w, governed); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func redactLine(text string, cfg *governance.Config, jsonLines bool) (string, error) {
	if !jsonLines {
		res, err := cfg.Apply(governance.String(text))
		if err != nil {
			return "", err
		}
		return string(res.Payload.(governance.String)), nil
	}

	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return "", nil
	}

	payload, err := decodePayload(text)
	if err != nil {
		return "", err
	}
	res, err := cfg.Apply(payload)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(governance.ToAny(res.Payload))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodePayload(text string) (governance.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return governance.FromAny(raw)
}
