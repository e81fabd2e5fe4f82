package cmd

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/emrgen/grantcore"
)

const (
	configFileName = "grantcore"
	configDir      = "./.tmp"
	defaultAddr    = "localhost:4020"
)

// Addr is the server address given with --addr; it overrides the saved
// context.
var Addr string

var contextCommand = &cobra.Command{
	Use:   "context",
	Short: "context commands",
}

func init() {
	contextCommand.AddCommand(setContextCommand())
	contextCommand.AddCommand(currentContextCommand())
	contextCommand.AddCommand(resetContextCommand())
}

type Context struct {
	Addr  string `mapstructure:"addr" json:"addr"`
	Owner string `mapstructure:"owner" json:"owner"`
}

// saves the context info to the config file in ./.tmp
func setContextCommand() *cobra.Command {
	var addr string
	var owner string
	command := &cobra.Command{
		Use:   "set",
		Short: "set context",
		Run: func(cmd *cobra.Command, args []string) {
			if addr == "" && owner == "" {
				color.Red(`missing: --addr or --owner`)
				return
			}

			current := readContext()
			if addr != "" {
				current.Addr = addr
			}
			if owner != "" {
				current.Owner = owner
			}
			if err := writeContext(current); err != nil {
				color.Red("error writing config file: %v", err)
				return
			}
			color.Green("context saved")
		},
	}

	command.Flags().StringVarP(&addr, "addr", "a", "", "server address")
	command.Flags().StringVarP(&owner, "owner", "o", "", "default owner id")

	return command
}

func currentContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "current",
		Short: "current context",
		Run: func(cmd *cobra.Command, args []string) {
			current := readContext()
			printField("Addr", current.Addr)
			printField("Owner", current.Owner)
		},
	}

	return command
}

func resetContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "reset",
		Short: "reset context",
		Run: func(cmd *cobra.Command, args []string) {
			err := os.Remove(filepath.Join(configDir, configFileName+".yml"))
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				color.Red("error removing config file: %v", err)
				return
			}
			color.Green("context reset")
		},
	}

	return command
}

func contextViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.AddConfigPath(configDir)
	v.SetConfigType("yml")
	return v
}

func writeContext(context Context) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	v := contextViper()
	v.Set("context", context)
	return v.WriteConfigAs(filepath.Join(configDir, configFileName+".yml"))
}

func readContext() Context {
	ctx := Context{Addr: defaultAddr}

	v := contextViper()
	if err := v.ReadInConfig(); err != nil {
		return ctx
	}
	if err := v.UnmarshalKey("context", &ctx); err != nil {
		color.Red("error reading context: %v", err)
	}
	if ctx.Addr == "" {
		ctx.Addr = defaultAddr
	}

	return ctx
}

func bindContextFlags(command *cobra.Command) {
	command.PersistentFlags().StringVar(&Addr, "addr", "", "server address (default from context)")
}

func newClient() (grantcore.Client, error) {
	addr := Addr
	if addr == "" {
		addr = readContext().Addr
	}
	return grantcore.NewClient(addr)
}
