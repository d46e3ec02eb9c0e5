package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/feed"
	"github.com/Thcamm/personal-diary/internal/repository"
	"github.com/Thcamm/personal-diary/internal/service"
)

func (a *app) feedCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List the diaries you can see, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.api.Feed(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(entries)
			}
			a.printEntries(entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of diaries (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of diaries to skip")
	return cmd
}

func (a *app) mineCmd() *cobra.Command {
	var visibility string

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List your own diaries with stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := feed.ParseVisibility(visibility)
			if err != nil {
				return err
			}
			owned, err := a.api.MyDiaries(cmd.Context(), v)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(owned)
			}
			s := owned.Stats
			fmt.Fprintf(a.out, "%d diaries (%d public, %d private), %d likes\n\n", s.Total, s.Public, s.Private, s.TotalLikes)
			a.printEntries(owned.Entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&visibility, "visibility", "all", "all, public or private")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <diary-id>",
		Short: "Show a diary and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.api.GetDiary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			comments, err := a.api.ListComments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(map[string]any{
					"diary":         detail.Diary,
					"likedByViewer": detail.LikedByViewer,
					"comments":      comments,
				})
			}
			a.printDiary(detail.Diary, detail.LikedByViewer, comments)
			return nil
		},
	}
}

// readContent returns value, or all of stdin when value is "-".
func readContent(cmd *cobra.Command, value string) (string, error) {
	if value != "-" {
		return value, nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading content from stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func (a *app) writeCmd() *cobra.Command {
	var title, content string
	var public bool

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a new diary (private unless --public)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.Authenticated() {
				return apperror.Unauthorized("sign in to write a diary")
			}
			body, err := readContent(cmd, content)
			if err != nil {
				return err
			}
			d, err := a.api.CreateDiary(cmd.Context(), service.CreateDiaryInput{
				Title:    title,
				Content:  body,
				IsPublic: public,
			})
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(d)
			}
			fmt.Fprintf(a.out, "%s Saved %s as %s (%s)\n", okMark(), bold(d.Title), d.ID, visibilityLabel(d.IsPublic))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&content, "content", "", `content, or "-" to read stdin`)
	cmd.Flags().BoolVar(&public, "public", false, "make the diary public")
	cmd.MarkFlagRequired("title")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var title, content string
	var public, private bool

	cmd := &cobra.Command{
		Use:   "edit <diary-id>",
		Short: "Change a diary's title, content or visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch repository.DiaryPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("content") {
				body, err := readContent(cmd, content)
				if err != nil {
					return err
				}
				patch.Content = &body
			}
			switch {
			case public:
				v := true
				patch.IsPublic = &v
			case private:
				v := false
				patch.IsPublic = &v
			}
			if patch.Empty() {
				return apperror.ValidationFailed("patch", "nothing to change: pass --title, --content, --public or --private")
			}

			d, err := a.api.UpdateDiary(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(d)
			}
			fmt.Fprintf(a.out, "%s Updated %s (%s)\n", okMark(), bold(d.Title), visibilityLabel(d.IsPublic))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", `new content, or "-" to read stdin`)
	cmd.Flags().BoolVar(&public, "public", false, "make the diary public")
	cmd.Flags().BoolVar(&private, "private", false, "make the diary private")
	cmd.MarkFlagsMutuallyExclusive("public", "private")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <diary-id>",
		Short: "Delete a diary with its comments and likes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.DeleteDiary(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s Deleted %s\n", okMark(), args[0])
			return nil
		},
	}
}
