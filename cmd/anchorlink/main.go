package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"anchorlink/internal/blockid"
	"anchorlink/internal/config"
	"anchorlink/internal/server"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "anchorlink",
	Short: "Heading and block anchor completion for markdown notes",
	Long: `anchorlink is a language server for markdown notes.

Type # or ^ right after a link such as [Intro](<notes.md>) and pick a
heading or paragraph of the linked note; the link is rewritten to point
at it. Paragraphs without an identifier get one appended.

Without a subcommand the server speaks LSP on stdin and stdout.`,
	Args:          cobra.NoArgs,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-file", "", "Path to log file")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase protocol log verbosity")
	rootCmd.PersistentFlags().Int("block-id-length", blockid.DefaultLength, "Length of generated block identifiers")
	_ = v.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = v.BindPFlag("block_id_length", rootCmd.PersistentFlags().Lookup("block-id-length"))

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(suggestCmd)
}

func initConfig() {
	if err := config.Init(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	// 4 Cores
	runtime.GOMAXPROCS(4)

	// Logging
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Starting anchorlink LSP server...")
		commonlog.Configure(1+cfg.Verbose, &cfg.LogFile)
	} else {
		log.SetOutput(io.Discard)
		commonlog.Configure(cfg.Verbose, nil) // Logger used by glsp
	}

	s := server.NewServer(cfg, afero.NewOsFs(), Version)
	if err := s.RunStdio(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	return nil
}
