package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/san-kum/fraclab/internal/analysis"
	"github.com/san-kum/fraclab/internal/config"
	"github.com/san-kum/fraclab/internal/logging"
	"github.com/san-kum/fraclab/internal/server"
	"github.com/san-kum/fraclab/internal/session"
	"github.com/san-kum/fraclab/internal/storage"
	"github.com/san-kum/fraclab/internal/tui"
)

const defaultConfigFile = "fraclab.yml"

var (
	configFile string
	envFile    string
	logLevel   string
	workers    int

	rows          uint32
	cols          uint32
	centerRe      float64
	centerIm      float64
	pitch         float64
	maxIterations uint32
	paletteFile   string
	outputName    string
	outputDir     string
	paletteDir    string
	preset        string
	showHistogram bool
	suggest       int

	addr  string
	force bool
)

var (
	accent = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	muted  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	failed = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// flagKeys binds command-line flags to config keys for the viper overlay.
var flagKeys = map[string]string{
	"rows":           "defaults.rows",
	"cols":           "defaults.cols",
	"center-re":      "defaults.center_re",
	"center-im":      "defaults.center_im",
	"pitch":          "defaults.pixel_pitch",
	"max-iterations": "defaults.max_iterations",
	"palette":        "defaults.palette_file",
	"output":         "defaults.image_filename",
	"outdir":         "paths.fractal_dir",
	"palettes":       "paths.palette_dir",
	"workers":        "workers",
	"log-level":      "log.level",
	"addr":           "server.addr",
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "fraclab",
		Short:         "escape-time fractal explorer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runExplore,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, default ./fraclab.yml when present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with FRACLAB_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "row workers (0 = all CPUs)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "outdir", config.DefaultFractalDir, "image output directory")
	rootCmd.PersistentFlags().StringVar(&paletteDir, "palettes", config.DefaultPaletteDir, "palette directory")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the fractal session over http",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "compute and render one image",
		RunE:  runGenerate,
	}
	addViewFlags(generateCmd)
	generateCmd.Flags().BoolVar(&showHistogram, "histogram", false, "plot the escape histogram")

	histogramCmd := &cobra.Command{
		Use:   "histogram",
		Short: "plot the escape histogram of a view",
		RunE:  runHistogram,
	}
	addViewFlags(histogramCmd)
	histogramCmd.Flags().IntVar(&suggest, "suggest", 0, "suggest n palette positions")

	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "interactive terminal explorer",
		RunE:  runExplore,
	}
	addViewFlags(exploreCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list landmark presets",
		RunE:  listPresets,
	}

	palettesCmd := &cobra.Command{
		Use:   "palettes",
		Short: "list palettes in the palette directory",
		RunE:  listPalettes,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage the config file",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default config",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(serveCmd, generateCmd, histogramCmd, exploreCmd, presetsCmd, palettesCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failed.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func addViewFlags(cmd *cobra.Command) {
	d := config.DefaultConfig().Defaults
	cmd.Flags().Uint32Var(&rows, "rows", d.Rows, "image rows")
	cmd.Flags().Uint32Var(&cols, "cols", d.Cols, "image columns")
	cmd.Flags().Float64Var(&centerRe, "center-re", d.CenterRe, "real part of the center")
	cmd.Flags().Float64Var(&centerIm, "center-im", d.CenterIm, "imaginary part of the center")
	cmd.Flags().Float64Var(&pitch, "pitch", d.Pitch, "complex-plane distance between pixels")
	cmd.Flags().Uint32Var(&maxIterations, "max-iterations", d.MaxIterations, "iteration cap")
	cmd.Flags().StringVar(&paletteFile, "palette", d.PaletteFile, "palette file in the palette directory")
	cmd.Flags().StringVar(&outputName, "output", d.ImageFilename, "base image name; the extension picks the format")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a landmark preset")
}

// loadConfig layers the config file, the dotenv file, FRACLAB_* variables and
// explicitly set flags, in that order. A preset replaces center, pitch and
// iterations unless those flags were given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := config.DefaultConfig()
	path := configFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	v := config.NewViper()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})
	config.Overlay(cfg, v)

	if preset != "" {
		p, ok := config.GetPreset(preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (see fraclab presets)", preset)
		}
		d := p.Apply(cfg.Defaults)
		flags := cmd.Flags()
		if flags.Changed("center-re") {
			d.CenterRe = cfg.Defaults.CenterRe
		}
		if flags.Changed("center-im") {
			d.CenterIm = cfg.Defaults.CenterIm
		}
		if flags.Changed("pitch") {
			d.Pitch = cfg.Defaults.Pitch
		}
		if flags.Changed("max-iterations") {
			d.MaxIterations = cfg.Defaults.MaxIterations
		}
		cfg.Defaults = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSession(cmd *cobra.Command) (*session.Session, zerolog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logging.New(cfg.Log, os.Stderr)
	sess, err := session.New(*cfg, log)
	if err != nil {
		return nil, log, err
	}
	return sess, log, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	sess, log, err := newSession(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(sess, log)
	return srv.ListenAndServe(ctx)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	sess, _, err := newSession(cmd)
	if err != nil {
		return err
	}

	res, err := sess.Generate(session.GenerateParams{})
	if err != nil {
		return err
	}
	printResult(res, sess.Config().Paths.FractalDir)

	if showHistogram {
		h, err := sess.Histogram()
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(tui.HistogramPlot(h.Histogram, 80, 12, "escape counts"))
	}
	return nil
}

func runHistogram(cmd *cobra.Command, args []string) error {
	sess, _, err := newSession(cmd)
	if err != nil {
		return err
	}
	if _, err := sess.Generate(session.GenerateParams{}); err != nil {
		return err
	}

	h, err := sess.Histogram()
	if err != nil {
		return err
	}
	total := h.Total()
	interior := h.Counts[len(h.Counts)-1]
	fmt.Printf("%s %d cells, %d bounded, %s\n",
		accent.Render("histogram"), total, interior, muted.Render(h.Duration.String()))
	if plot := tui.HistogramPlot(h.Histogram, 80, 15, "escape counts (bounded cells omitted)"); plot != "" {
		fmt.Println(plot)
	}

	if suggest > 0 {
		positions := analysis.SuggestPositions(h.Histogram, suggest)
		if positions == nil {
			return fmt.Errorf("--suggest needs at least 2 positions")
		}
		fmt.Println()
		fmt.Println(accent.Render("suggested palette positions"))
		for i, p := range positions {
			fmt.Printf("  %2d  %.4f\n", i, p)
		}
	}
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// The explorer owns the terminal, so the session does not log.
	sess, err := session.New(*cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	return tui.Run(sess)
}

func listPresets(cmd *cobra.Command, args []string) error {
	d := config.DefaultConfig().Defaults
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCENTER\tPITCH\tITS\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p, _ := config.GetPreset(name)
		v := p.Apply(d)
		fmt.Fprintf(w, "%s\t%.6f%+.6fi\t%.3g\t%d\t%s\n",
			p.Name, v.CenterRe, v.CenterIm, v.Pitch, v.MaxIterations, p.Description)
	}
	return w.Flush()
}

func listPalettes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.Paths.PaletteDir)
	if err := st.Init(); err != nil {
		return err
	}
	list, err := st.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENTRIES\tMODIFIED\tSTATUS")
	for _, p := range list {
		status := "ok"
		if p.Error != "" {
			status = p.Error
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", p.Name, p.Entries, p.Modified.Format("2006-01-02 15:04:05"), status)
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := defaultConfigFile
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", accent.Render(path))
	return nil
}

func printResult(res session.Result, dir string) {
	p := res.Params
	fmt.Printf("%s %s\n", accent.Render(res.Op), res.Image)
	fmt.Printf("  %s %s/%s\n", muted.Render("path  "), dir, res.Image)
	fmt.Printf("  %s %dx%d  center %.10g%+.10gi  pitch %.4g  its %d\n",
		muted.Render("view  "), p.Cols, p.Rows, p.CenterRe, p.CenterIm, p.PixelPitch, p.MaxIterations)
	fmt.Printf("  %s %s\n", muted.Render("palette"), p.PaletteFile)
	fmt.Printf("  %s %.3f sec\n", muted.Render("time  "), res.Duration.Seconds())
}
