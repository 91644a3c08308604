package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dstnat2fgt/internal/config"
	"dstnat2fgt/internal/engine"
	"dstnat2fgt/internal/mapping"
	"dstnat2fgt/internal/model"
	"dstnat2fgt/internal/parser"
	"dstnat2fgt/internal/render"
	"dstnat2fgt/internal/services"
	"dstnat2fgt/pkg/wellknown"
)

var (
	configFile      string
	inputFile       string
	inputFormat     string
	outputBasename  string
	mapNetwork      []string
	mapInterface    []string
	defaultInternal string
	defaultExternal string
	ignoreIssues    bool
	useSDWAN        bool
	sdwanZone       string
	servicesFile    string
	dbDSN           string
	dbTable         string
	logLevel        string
	logFile         string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dstnat2fgt",
		Short: "Convert destination NAT rules into FortiGate virtual IPs and policies",
		Long: `dstnat2fgt reads destination NAT rules from iptables-save output, CSV,
	MikroTik exports, FortiGate backups or a MariaDB table, resolves their
	interfaces and services, reports every rule that cannot be converted and
	writes FortiOS Terraform resources for the rest.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	formats := strings.Join(append(parser.Names(), config.FormatMariaDB), ", ")

	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file with NAT rules")
	rootCmd.Flags().StringVarP(&inputFormat, "input-format", "f", config.DefaultInputFormat, "Input format: "+formats)
	rootCmd.Flags().StringVarP(&outputBasename, "output-basename", "o", config.DefaultBasename, "Basename for the .csv, .tf and -services.tf outputs")
	rootCmd.Flags().StringArrayVar(&mapNetwork, "map-network", nil, "Network to interface mapping CIDR:interface (repeatable)")
	rootCmd.Flags().StringArrayVar(&mapInterface, "map-interface", nil, "Source to target interface mapping source:target (repeatable)")
	rootCmd.Flags().StringVar(&defaultInternal, "default-internal", "", "Interface for rules whose internal interface is unresolved")
	rootCmd.Flags().StringVar(&defaultExternal, "default-external", "", "Interface for rules whose external interface is unresolved")
	rootCmd.Flags().BoolVar(&ignoreIssues, "ignore-issues", false, "Write outputs for the valid rules even if some rules are invalid")
	rootCmd.Flags().BoolVar(&useSDWAN, "use-sdwan", false, "Use the SD-WAN zone as policy source interface")
	rootCmd.Flags().StringVar(&sdwanZone, "sdwan-zone", config.DefaultSDWANZone, "SD-WAN zone name")
	rootCmd.Flags().StringVar(&servicesFile, "services-file", "", "Service definitions (YAML/JSON or FortiGate config) replacing the built-in list")
	rootCmd.Flags().StringVar(&dbDSN, "db", "", "Database connection string (for 'mariadb' input format)")
	rootCmd.Flags().StringVar(&dbTable, "db-table", config.DefaultDBTable, "Table holding the NAT rows (for 'mariadb' input format)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFile)
	slog.SetDefault(logger)

	slog.Info("Starting dstnat2fgt", "input", cfg.Input, "format", cfg.InputFormat)
	startTime := time.Now()

	if err := cfg.Validate(parser.Names()); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return err
	}

	networks, interfaces, err := buildMaps(cfg.MapNetwork, cfg.MapInterface)
	if err != nil {
		slog.Error("Failed to build mappings", "error", err)
		return err
	}
	slog.Info("Mappings loaded", "networks", networks.Len(), "interfaces", interfaces.Len())

	registry, err := loadServices(cfg.ServicesFile)
	if err != nil {
		slog.Error("Failed to load services", "path", cfg.ServicesFile, "error", err)
		return err
	}
	slog.Info("Services loaded", "count", registry.Len())

	rules, err := loadRules(cfg, networks)
	if err != nil {
		slog.Error("Failed to load rules", "error", err)
		return err
	}
	slog.Info("Rules parsed", "count", len(rules))

	classifier := engine.NewClassifier(networks, interfaces, registry, engine.Options{
		DefaultExternal: cfg.DefaultExternal,
		DefaultInternal: cfg.DefaultInternal,
	})
	result, err := classifier.Classify(rules)
	if err != nil {
		slog.Error("Failed to classify rules", "error", err)
		return err
	}

	if err := render.Report(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if len(result.Invalid) > 0 && !cfg.IgnoreIssues {
		err := fmt.Errorf("%d of %d rules are invalid, fix them or run with --ignore-issues", len(result.Invalid), len(result.Rules))
		slog.Error("Refusing to write outputs", "error", err)
		return err
	}

	if err := writeOutputs(cfg, result); err != nil {
		slog.Error("Failed to write outputs", "error", err)
		return err
	}

	slog.Info("Conversion complete", "duration", time.Since(startTime))
	return nil
}

// resolveConfig loads the config file, if any, and applies the flags that
// were set explicitly. Mapping lists from both sources are concatenated.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = inputFile
	}
	if flags.Changed("input-format") {
		cfg.InputFormat = inputFormat
	}
	if flags.Changed("output-basename") {
		cfg.OutputBasename = outputBasename
	}
	cfg.MapNetwork = append(cfg.MapNetwork, mapNetwork...)
	cfg.MapInterface = append(cfg.MapInterface, mapInterface...)
	if flags.Changed("default-internal") {
		cfg.DefaultInternal = defaultInternal
	}
	if flags.Changed("default-external") {
		cfg.DefaultExternal = defaultExternal
	}
	if flags.Changed("ignore-issues") {
		cfg.IgnoreIssues = ignoreIssues
	}
	if flags.Changed("use-sdwan") {
		cfg.UseSDWAN = useSDWAN
	}
	if flags.Changed("sdwan-zone") {
		cfg.SDWANZone = sdwanZone
	}
	if flags.Changed("services-file") {
		cfg.ServicesFile = servicesFile
	}
	if flags.Changed("db") {
		cfg.DBDSN = dbDSN
	}
	if flags.Changed("db-table") {
		cfg.DBTable = dbTable
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	return cfg, nil
}

func setupLogger(level, logFilePath string) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logWriter = f
		}
		// Falls back to stderr, there is no logger to report to yet.
	}

	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
}

// buildMaps inserts every mapping spec and reports all failures at once.
// Any failure discards both maps.
func buildMaps(networkSpecs, interfaceSpecs []string) (*mapping.NetworkMap, *mapping.InterfaceMap, error) {
	networks := mapping.NewNetworkMap()
	interfaces := mapping.NewInterfaceMap()

	var errs []error
	for _, spec := range networkSpecs {
		if _, _, err := networks.AddSpec(spec); err != nil {
			errs = append(errs, fmt.Errorf("network mapping %q: %w", spec, err))
		}
	}
	for _, spec := range interfaceSpecs {
		if _, _, err := interfaces.AddSpec(spec); err != nil {
			errs = append(errs, fmt.Errorf("interface mapping %q: %w", spec, err))
		}
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return networks, interfaces, nil
}

// loadServices seeds a registry with the embedded services, or with the
// ones defined in path. A FortiGate configuration backup contributes its
// custom services.
func loadServices(path string) (*services.Registry, error) {
	var defs []wellknown.Definition
	var err error

	if path == "" {
		defs, err = wellknown.Defaults()
	} else {
		defs, err = loadServiceFile(path)
	}
	if err != nil {
		return nil, err
	}

	registry := services.NewRegistry()
	if err := wellknown.Register(registry, defs); err != nil {
		return nil, err
	}
	return registry, nil
}

func loadServiceFile(path string) ([]wellknown.Definition, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	lines, err := parser.ReadLines(file)
	if err != nil {
		return nil, err
	}
	if !parser.LooksLikeFortiGateConfig(lines) {
		return wellknown.Parse(strings.NewReader(strings.Join(lines, "\n")))
	}

	p := parser.NewFortiGateParser(lines, nil)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return p.Services, nil
}

func loadRules(cfg *config.Config, networks *mapping.NetworkMap) ([]*model.NATRule, error) {
	if strings.EqualFold(cfg.InputFormat, config.FormatMariaDB) {
		src, err := parser.NewMariaDBSource(cfg.DBDSN, cfg.DBTable)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return src.Parse(nil, networks)
	}

	format, ok := parser.Lookup(cfg.InputFormat)
	if !ok {
		return nil, fmt.Errorf("%w: unknown input format %q", model.ErrFormat, cfg.InputFormat)
	}

	file, err := os.Open(cfg.Input)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	lines, err := parser.ReadLines(file)
	if err != nil {
		return nil, err
	}
	rules, err := format(nil, lines, networks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Input, err)
	}
	return rules, nil
}

func writeOutputs(cfg *config.Config, result *engine.Result) error {
	opts := render.TerraformOptions{UseSDWAN: cfg.UseSDWAN, SDWANZone: cfg.SDWANZone}

	outputs := []struct {
		path  string
		write func(io.Writer) error
	}{
		{cfg.OutputBasename + ".csv", func(w io.Writer) error { return render.CSV(w, result) }},
		{cfg.OutputBasename + ".tf", func(w io.Writer) error { return render.TerraformRules(w, result, opts) }},
		{cfg.OutputBasename + "-services.tf", func(w io.Writer) error { return render.TerraformServices(w, result) }},
	}

	for _, out := range outputs {
		if err := writeFile(out.path, out.write); err != nil {
			return err
		}
		slog.Info("Wrote output", "path", out.path)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
