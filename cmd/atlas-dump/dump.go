package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian/confluence"
	"github.com/golovatskygroup/mcp-atlas/internal/atlassian/jira"
	"github.com/golovatskygroup/mcp-atlas/internal/attachment"
	"github.com/golovatskygroup/mcp-atlas/internal/query"
)

func runListSpaces(ctx context.Context, cmd *cobra.Command) error {
	c, err := confluence.NewFromEnv(flagClient, flagBaseURL)
	if err != nil {
		return err
	}
	spaces, err := c.ListSpaces(ctx, flagLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range spaces {
		fmt.Fprintf(out, "%-12s %s\n", s.Key, s.Name)
	}
	fmt.Fprintf(out, "\n%d spaces\n", len(spaces))
	return nil
}

func runListProjects(ctx context.Context, cmd *cobra.Command) error {
	c, err := jira.NewFromEnv(flagClient, flagBaseURL)
	if err != nil {
		return err
	}
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range projects {
		fmt.Fprintf(out, "%-12s %s\n", p.Key, p.Name)
	}
	fmt.Fprintf(out, "\n%d projects\n", len(projects))
	return nil
}

func runDumpSpace(ctx context.Context, cmd *cobra.Command, spaceKey string) error {
	c, err := confluence.NewFromEnv(flagClient, flagBaseURL)
	if err != nil {
		return err
	}

	var refs []attachment.Ref
	for _, contentType := range []string{"page", "blogpost"} {
		items, err := c.GetSpaceContent(ctx, spaceKey, contentType, flagLimit)
		if err != nil {
			return fmt.Errorf("list %ss in %s: %w", contentType, spaceKey, err)
		}
		for _, item := range items {
			atts, err := c.ListAttachments(ctx, item.ID, 0)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipping %q: %v\n", item.Title, err)
				continue
			}
			refs = append(refs, confluence.Refs(item, atts)...)
		}
	}

	return dumpRefs(ctx, cmd, refs, c.Download)
}

func runDumpProject(ctx context.Context, cmd *cobra.Command, projectKey string) error {
	c, err := jira.NewFromEnv(flagClient, flagBaseURL)
	if err != nil {
		return err
	}

	hasAttachments := true
	jql, err := query.BuildJQL(query.IssueFilter{
		ProjectKey:     projectKey,
		HasAttachments: &hasAttachments,
	})
	if err != nil {
		return err
	}
	issues, err := c.SearchIssues(ctx, jql, flagLimit)
	if err != nil {
		return fmt.Errorf("search issues in %s: %w", projectKey, err)
	}

	var refs []attachment.Ref
	for _, issue := range issues {
		refs = append(refs, jira.Refs(issue)...)
	}

	return dumpRefs(ctx, cmd, refs, c.Download)
}

// dumpRefs downloads the batch with a progress bar and prints a per-failure
// report plus totals.
func dumpRefs(ctx context.Context, cmd *cobra.Command, refs []attachment.Ref, fetch attachment.Fetcher) error {
	refs = attachment.FilterByType(refs, flagTypes)
	out := cmd.OutOrStdout()
	if len(refs) == 0 {
		fmt.Fprintln(out, "no matching attachments found")
		return nil
	}

	org, err := attachment.NewOrganizer(flagDir)
	if err != nil {
		return err
	}

	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(cmd.ErrOrStderr()))
	bar := p.AddBar(int64(len(refs)),
		mpb.PrependDecorators(
			decor.Name("attachments:", decor.WC{C: decor.DindentRight | decor.DextraSpace}),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("(%d/%d) "),
			decor.NewPercentage("%d"),
		),
	)

	d := &attachment.Downloader{
		Workers: flagWorkers,
		Fetch:   fetch,
		ProgressFn: func(attachment.Result) {
			bar.Increment()
		},
	}
	results := d.DownloadAll(ctx, refs, func(ref attachment.Ref) (string, error) {
		return org.Resolve(ref.Key, ref.ContentTitle, ref.Filename)
	})
	p.Wait()

	var downloaded, failed int
	var bytes int64
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", res.Filename, res.Err)
			continue
		}
		downloaded++
		bytes += res.Bytes
	}

	fmt.Fprintf(out, "downloaded %d of %d attachments (%d bytes) into %s\n",
		downloaded, len(refs), bytes, org.BaseDir())
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(refs))
	}
	return nil
}
