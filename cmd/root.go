package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/suggest"
)

var (
	versionStr string
	baseDir    string
)

// SetVersion sets the version string
func SetVersion(v string) {
	versionStr = v
}

var rootCmd = &cobra.Command{
	Use:   "moneyai",
	Short: "Personal finance CLI with Account Aggregator bank linking",
	Long: `moneyai - A personal finance CLI that keeps your ledger local.

Track transactions, budgets, bills, debts, subscriptions and goals in a
SQLite ledger under ~/.moneyai, link real bank accounts through the
Account Aggregator consent flow, and ask the AI about your money.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// nameWithAliases returns "name, alias1, alias2" if aliases exist, else just "name"
func nameWithAliases(cmd *cobra.Command) string {
	if len(cmd.Aliases) > 0 {
		return cmd.Name() + ", " + strings.Join(cmd.Aliases, ", ")
	}
	return cmd.Name()
}

// unknownFlagHint builds a did-you-mean line for unknown flag errors
func unknownFlagHint(cmd *cobra.Command, err error) string {
	msg := err.Error()
	var unknown string
	switch {
	case strings.HasPrefix(msg, "unknown flag: --"):
		unknown = strings.TrimPrefix(msg, "unknown flag: --")
	case strings.HasPrefix(msg, "unknown shorthand flag:"):
		// message reads: unknown shorthand flag: 'x' in -x
		if i := strings.Index(msg, "'"); i >= 0 && i+1 < len(msg) {
			unknown = string(msg[i+1])
		}
	default:
		return ""
	}
	if unknown == "" {
		return ""
	}

	if hint := suggest.GetFlagHint(unknown); hint != "" {
		if strings.HasPrefix(hint, "--") {
			return "Did you mean " + hint + "?"
		}
		return "Hint: " + hint
	}

	var valid []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		valid = append(valid, f.Name)
	})
	matches := suggest.Flag(unknown, valid)
	if len(matches) == 0 {
		return ""
	}
	for i := range matches {
		matches[i] = "--" + matches[i]
	}
	return "Did you mean " + strings.Join(matches, " or ") + "?"
}

func init() {
	cobra.OnInitialize(initBaseDir)

	// Add custom template function for showing aliases
	cobra.AddTemplateFunc("nameWithAliases", nameWithAliases)

	// Custom usage template that shows aliases inline
	usageTemplate := `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`

	// Need to add the 'add' function for padding calculation
	cobra.AddTemplateFunc("add", func(a, b int) int { return a + b })

	rootCmd.SetUsageTemplate(usageTemplate)

	// Define command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: "money", Title: "Money Commands:"},
		&cobra.Group{ID: "linking", Title: "Bank Linking Commands:"},
		&cobra.Group{ID: "ai", Title: "AI Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)

	// Assign built-in commands to system group
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		if hint := unknownFlagHint(cmd, err); hint != "" {
			return fmt.Errorf("%v\n%s", err, hint)
		}
		return err
	})
}

func initBaseDir() {
	var err error
	baseDir, err = db.DefaultBaseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}
}

// getBaseDir returns the directory the .moneyai data dir lives under
func getBaseDir() string {
	return baseDir
}
