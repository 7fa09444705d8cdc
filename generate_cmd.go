package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/vortaro/internal/asset"
	"github.com/dgnsrekt/vortaro/internal/synth"
)

var (
	vocabFile   string
	vocabColumn string
	genForce    bool
	genRaw      bool
	genLimit    int

	generateCmd = &cobra.Command{
		Use:   "generate [WORD...]",
		Short: "Synthesize missing audio files",
		Long: paragraph(fmt.Sprintf("\n%s a WAV file in the asset directory for every word that has none, with RHVoice or Piper.",
			keyword("Synthesize"))),
		Example: paragraph("vortaro generate --from vocab.csv\nvortaro generate --engine piper --model eo.onnx ĉevalo ŝipo"),
		RunE:    runGenerate,
	}

	gapsCmd = &cobra.Command{
		Use:     "gaps",
		Short:   "List vocabulary words without an audio file",
		Example: paragraph("vortaro gaps --from vocab.csv"),
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			lib, items, err := vocabulary(nil)
			if err != nil {
				return err
			}
			missing, err := synth.Missing(lib, items)
			if err != nil {
				return err
			}
			if len(missing) == 0 {
				fmt.Println("No gaps.")
				return nil
			}
			fmt.Printf("%d of %d words have no audio:\n", len(missing), len(items))
			for _, it := range missing {
				fmt.Printf("- %s -> %s.wav\n", it.Word, it.Key)
			}
			return nil
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{generateCmd, gapsCmd} {
		c.Flags().StringVar(&vocabFile, "from", "", "vocabulary CSV file")
		c.Flags().StringVar(&vocabColumn, "column", synth.DefaultColumn, "CSV column holding the words")
	}
	generateCmd.Flags().String("engine", "", "synthesizer (rhvoice or piper)")
	generateCmd.Flags().String("voice", "", "RHVoice voice or Piper speaker")
	generateCmd.Flags().String("model", "", "Piper model file")
	generateCmd.Flags().Int("per-minute", 0, "most words synthesized per minute (0 for no limit)")
	generateCmd.Flags().BoolVar(&genForce, "force", false, "regenerate existing files")
	generateCmd.Flags().BoolVar(&genRaw, "no-clean", false, "pass words to the synthesizer unchanged")
	generateCmd.Flags().IntVar(&genLimit, "limit", 0, "stop after N words (0 for all)")

	_ = viper.BindPFlag("synth.engine", generateCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("synth.voice", generateCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("synth.model", generateCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("synth.per_minute", generateCmd.Flags().Lookup("per-minute"))

	d := synth.DefaultConfig()
	viper.SetDefault("synth.engine", d.Engine)
	viper.SetDefault("synth.voice", d.Voice)
	viper.SetDefault("synth.binary", "")
	viper.SetDefault("synth.model", "")
	viper.SetDefault("synth.timeout", d.Timeout)
	viper.SetDefault("synth.per_minute", 0)

	rootCmd.AddCommand(generateCmd, gapsCmd)
}

// vocabulary opens the asset library and reads the words to work on, from
// --from and the arguments.
func vocabulary(args []string) (*asset.Library, []synth.Item, error) {
	words := append([]string(nil), args...)
	if vocabFile != "" {
		f, err := os.Open(vocabFile)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open vocabulary: %w", err)
		}
		defer f.Close() //nolint:errcheck
		fromFile, err := synth.ReadWords(f, vocabColumn)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", vocabFile, err)
		}
		words = append(words, fromFile...)
	}
	if len(words) == 0 {
		return nil, nil, errors.New("no words: pass them as arguments or use --from")
	}

	dir := viper.GetString("assets")
	if expanded, err := homedir.Expand(dir); err == nil {
		dir = expanded
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return nil, nil, fmt.Errorf("unable to create asset directory: %w", err)
	}
	lib, err := asset.NewLibrary(dir, nil, log.Default().WithPrefix("asset"))
	if err != nil {
		return nil, nil, err
	}
	return lib, synth.Items(words), nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	lib, items, err := vocabulary(args)
	if err != nil {
		return err
	}
	if genLimit > 0 && len(items) > genLimit {
		items = items[:genLimit]
	}

	engine, err := synth.New(synth.Config{
		Engine:  viper.GetString("synth.engine"),
		Binary:  viper.GetString("synth.binary"),
		Voice:   viper.GetString("synth.voice"),
		Model:   viper.GetString("synth.model"),
		Timeout: viper.GetDuration("synth.timeout"),
	})
	if err != nil {
		return err
	}
	if err := engine.Validate(); err != nil {
		return err
	}

	g := &synth.Generator{
		Engine:  engine,
		Library: lib,
		Force:   genForce,
		Raw:     genRaw,
		Logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "generate"}),
	}
	if n := viper.GetInt("synth.per_minute"); n > 0 {
		g.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Printf("Synthesizing %d words with %s into %s\n", len(items), engine.Name(), lib.Dir())
	report, err := g.Generate(ctx, items)
	fmt.Printf("Done: %d generated, %d skipped, %d failed\n", len(report.Generated), len(report.Skipped), len(report.Failed))
	for _, f := range report.Failed {
		fmt.Printf("- %s: %v\n", f.Word, f.Err)
	}
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d words failed", len(report.Failed))
	}
	return nil
}
