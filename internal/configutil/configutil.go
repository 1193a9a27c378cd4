package configutil

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagOrViperString resolves a string setting: an explicitly set flag wins,
// then the viper key (config file or env), then the flag default.
func FlagOrViperString(cmd *cobra.Command, flagName, viperKey string) string {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetString(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetString(viperKey)
	}
	v, _ := cmd.Flags().GetString(flagName)
	return v
}

func FlagOrViperBool(cmd *cobra.Command, flagName, viperKey string) bool {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetBool(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetBool(viperKey)
	}
	v, _ := cmd.Flags().GetBool(flagName)
	return v
}

func FlagOrViperInt(cmd *cobra.Command, flagName, viperKey string) int {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetInt(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetInt(viperKey)
	}
	v, _ := cmd.Flags().GetInt(flagName)
	return v
}

func FlagOrViperInt64(cmd *cobra.Command, flagName, viperKey string) int64 {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetInt64(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetInt64(viperKey)
	}
	v, _ := cmd.Flags().GetInt64(flagName)
	return v
}

func FlagOrViperDuration(cmd *cobra.Command, flagName, viperKey string) time.Duration {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetDuration(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetDuration(viperKey)
	}
	v, _ := cmd.Flags().GetDuration(flagName)
	return v
}

func FlagOrViperStringArray(cmd *cobra.Command, flagName, viperKey string) []string {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetStringArray(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetStringSlice(viperKey)
	}
	v, _ := cmd.Flags().GetStringArray(flagName)
	return v
}
