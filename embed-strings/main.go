package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shaderkit/cmd/embed-strings/internal/config"
	"github.com/shaderkit/cmd/embed-strings/lib"
)

// errUsage signals that the usage text has already been printed
var errUsage = errors.New("wrong number of arguments")

type cliFlags struct {
	config      string
	suffix      string
	encoding    string
	exclude     []string
	onError     string
	onCollision string
	manifest    string
	quiet       bool
}

func main() {
	// values from .env never override the real environment
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var f cliFlags

	cmd := &cobra.Command{
		Use:   "embed-strings [flags] <input_dir> <output_dir>",
		Short: "Embed text files as C++ string constants",
		Long: `embed-strings walks input_dir and writes one C++ header per file into
output_dir, mirroring the input tree. Each header declares the file's contents
as an inline constexpr char array named after the file, inside a namespace
derived from the file's relative path.

  embed-strings shaders include/shaders   # shaders/basic/vert.glsl -> include/shaders/basic/vert.glsl.h`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				fmt.Fprintln(cmd.OutOrStdout(), "Expected two arguments: input_dir output_dir")
				cmd.Usage()
				return errUsage
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return embedTree(cmd.OutOrStdout(), args[0], args[1], cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.config, "config", "", "Config file (.toml, .yaml or .json) (env: $"+config.ConfigEnv+")")
	fs.StringVar(&f.suffix, "suffix", lib.DefaultSuffix, "Suffix appended to every output file (env: $EMBED_STRINGS_SUFFIX)")
	fs.StringVar(&f.encoding, "encoding", "utf-8", "Charset of the input files (env: $EMBED_STRINGS_ENCODING)")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "Glob of files or directories to skip, repeatable (env: $EMBED_STRINGS_EXCLUDE)")
	fs.StringVar(&f.onError, "on-error", string(lib.AbortOnError), "What to do when a file fails: abort or continue (env: $EMBED_STRINGS_ON_ERROR)")
	fs.StringVar(&f.onCollision, "on-collision", string(lib.FailOnCollision), "What to do when two files map to the same symbol: error or ignore (env: $EMBED_STRINGS_ON_COLLISION)")
	fs.StringVar(&f.manifest, "manifest", "", "Write a JSON, TOML or YAML index of the generated headers (env: $EMBED_STRINGS_MANIFEST)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "Do not print progress (env: $EMBED_STRINGS_QUIET)")

	return cmd
}

// loadConfig layers explicitly set flags over the file and environment settings
func loadConfig(cmd *cobra.Command, f *cliFlags) (config.Config, error) {
	fs := cmd.Flags()

	path := os.Getenv(config.ConfigEnv)
	if fs.Changed("config") {
		path = f.config
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if fs.Changed("suffix") {
		cfg.Suffix = f.suffix
	}
	if fs.Changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if fs.Changed("exclude") {
		cfg.Exclude = f.exclude
	}
	if fs.Changed("on-error") {
		cfg.OnError = f.onError
	}
	if fs.Changed("on-collision") {
		cfg.OnCollision = f.onCollision
	}
	if fs.Changed("manifest") {
		cfg.Manifest = f.manifest
	}
	if fs.Changed("quiet") {
		cfg.Quiet = f.quiet
	}

	return cfg, cfg.Validate()
}

func embedTree(stdout io.Writer, inputDir, outputDir string, cfg config.Config) error {
	opts, err := cfg.Options(log.New(stdout, "", 0))
	if err != nil {
		return err
	}

	plan, err := lib.CreatePlan(inputDir, outputDir, opts)
	if err != nil {
		return err
	}

	report, err := plan.Run()

	if cfg.Manifest != "" && report != nil {
		if merr := lib.WriteManifest(cfg.Manifest, lib.NewManifest(plan, report)); merr != nil {
			return errors.Join(err, merr)
		}
	}
	if err != nil {
		return err
	}

	if opts.Logger != nil {
		opts.Logger.Printf("Embedded %d file(s) into %s", len(report.Written), outputDir)
	}
	return nil
}
