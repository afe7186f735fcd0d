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
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/medassist/internal/config"
	"github.com/valpere/medassist/internal/logging"
)

var version = "0.3.0"

var (
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "medassist",
	Short: "Multilingual medical question answering",
	Long: `medassist answers general health questions in the language they were asked.

Questions are detected and translated into English, answered by a local
sequence-to-sequence model (or Ollama / Gemini), cleaned up and translated
back together with a short disclaimer.

Use "medassist serve" for the web form and "medassist ask" for a single question.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if err := v.BindPFlag("log.level", cmd.Flags().Lookup("log-level")); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(v, configFile)
		if err != nil {
			return err
		}

		logger, err = logging.NewLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		config.LogStatus(cfg, logger)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
}
