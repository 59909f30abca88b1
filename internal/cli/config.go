package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CLAIMGUARD_SCORING_ENDPOINT.
const EnvPrefix = "CLAIMGUARD"

// LoadConfig resolves the effective configuration. Precedence, highest
// first: flags, CLAIMGUARD_* variables, the config file, then the tier
// defaults. CLAIMGUARD_DEBUG=true forces debug logging.
func LoadConfig(v *viper.Viper) (*domain.Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	base := domain.DefaultConfig()
	if domain.Tier(v.GetString("tier")) == domain.TierPro {
		base = domain.ProConfig()
	}

	// Register every key so environment variables reach nested fields.
	defaults, err := flatten(base)
	if err != nil {
		return nil, err
	}
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	cfg := base
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if v.GetBool("debug") {
		cfg.Logging.Level = "debug"
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *domain.Config) error {
	switch cfg.Tier {
	case domain.TierCommunity, domain.TierPro:
	default:
		return fmt.Errorf("unknown tier %q", cfg.Tier)
	}
	if cfg.Scoring.Endpoint == "" {
		return fmt.Errorf("scoring.endpoint is required")
	}
	if cfg.Scoring.Timeout < 0 {
		return fmt.Errorf("scoring.timeout must not be negative")
	}
	return nil
}

// flatten turns the config into dotted keys using its yaml names.
func flatten(cfg *domain.Config) (map[string]interface{}, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode defaults: %w", err)
	}

	out := make(map[string]interface{})
	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]interface{}); ok {
				walk(key, child)
				continue
			}
			out[key] = val
		}
	}
	walk("", tree)
	return out, nil
}

// redacted masks credentials for display.
func redacted(cfg domain.Config) domain.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = "********"
		}
	}
	mask(&cfg.Repository.PostgresPassword)
	mask(&cfg.Cache.RedisPassword)
	mask(&cfg.EventBus.NATSToken)
	return cfg
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect claimguard configuration",
	Long: `Inspect claimguard configuration.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CLAIMGUARD_*, also read from .env)
3. Config file (~/.claimguard/config.yaml)
4. Tier defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", file)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		data, err := yaml.Marshal(redacted(*cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every configuration key and its environment variable",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := flatten(domain.DefaultConfig())
		if err != nil {
			return err
		}
		names := make([]string, 0, len(keys))
		for k := range keys {
			names = append(names, k)
		}
		sort.Strings(names)

		replacer := strings.NewReplacer(".", "_")
		for _, k := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s_%s\n", k, EnvPrefix, strings.ToUpper(replacer.Replace(k)))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}
