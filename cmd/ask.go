/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/valpere/medassist/internal/assistant"
)

var (
	question  string
	inputFile string
	focusArea string
	asJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Answer one question and print the answer followed by the disclaimer.

The question can be given as an argument, with --question, read from a file
with --input, or piped on stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readQuestion(cmd, args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if cfg.Assistant.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Assistant.RequestTimeout)
			defer cancel()
		}

		p, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		resp, err := p.assistant.Answer(ctx, assistant.NewRequest(text, focusArea))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		if resp.Degraded {
			fmt.Fprintf(cmd.ErrOrStderr(), "Note: %s\n", resp.Note)
		}
		fmt.Fprintln(out, resp.Text())
		return nil
	},
}

func readQuestion(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case question != "":
		return question, nil
	case inputFile != "":
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	}

	if f, ok := cmd.InOrStdin().(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("no question given: pass it as an argument, with --question, --input or on stdin")
		}
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&question, "question", "q", "", "Question text")
	askCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Read the question from a file")
	askCmd.Flags().StringVarP(&focusArea, "focus", "f", "", "Focus area (default \"General Health\")")
	askCmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")
}
