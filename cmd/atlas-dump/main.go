// atlas-dump is a bulk attachment downloader for Confluence spaces and Jira
// projects, sharing the clients and local layout of the MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	flagDir     string
	flagWorkers int
	flagLimit   int
	flagTypes   []string
	flagClient  string
	flagBaseURL string
)

var rootCmd = &cobra.Command{
	Use:   "atlas-dump",
	Short: "Bulk-download attachments from Confluence spaces and Jira projects",
	Long: `atlas-dump fetches every attachment in a Confluence space or Jira project
into a local tree laid out as {dir}/{KEY}/{page or issue title}/{filename}.

Credentials come from the environment, the same variables the MCP server
reads (CONFLUENCE_BASE_URL, CONFLUENCE_API_TOKEN, JIRA_BASE_URL, ...).`,
	SilenceUsage: true,
}

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List Confluence spaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListSpaces(cmd.Context(), cmd)
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List Jira projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListProjects(cmd.Context(), cmd)
	},
}

var spaceCmd = &cobra.Command{
	Use:   "space KEY",
	Short: "Download all attachments in a Confluence space",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDumpSpace(cmd.Context(), cmd, args[0])
	},
}

var projectCmd = &cobra.Command{
	Use:   "project KEY",
	Short: "Download all attachments in a Jira project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDumpProject(cmd.Context(), cmd, args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "~/atlas_downloads", "Base directory for the download tree")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 4, "Concurrent downloads")
	rootCmd.PersistentFlags().IntVar(&flagLimit, "limit", 500, "Maximum pages/issues to scan")
	rootCmd.PersistentFlags().StringSliceVar(&flagTypes, "types", nil, "Only download these file types (extension or MIME type), e.g. --types pdf,docx")
	rootCmd.PersistentFlags().StringVar(&flagClient, "client", "", "Named client from the *_CLIENTS_JSON alias map")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "Override the instance base URL")

	rootCmd.AddCommand(spacesCmd, projectsCmd, spaceCmd, projectCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "interrupted, finishing in-flight downloads...")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
