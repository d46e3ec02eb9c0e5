package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thcamm/personal-diary/internal/interaction"
)

// track loads a diary into a fresh interaction manager. Comments are
// loaded only when withComments is set.
func (a *app) track(ctx context.Context, diaryID string, withComments bool) (*interaction.Manager, error) {
	detail, err := a.api.GetDiary(ctx, diaryID)
	if err != nil {
		return nil, err
	}
	m := interaction.NewManager(a.api)
	if !withComments {
		m.Track(*detail.Diary, detail.LikedByViewer, nil)
		return m, nil
	}
	comments, err := a.api.ListComments(ctx, diaryID)
	if err != nil {
		return nil, err
	}
	m.Track(*detail.Diary, detail.LikedByViewer, comments)
	return m, nil
}

func (a *app) likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <diary-id>",
		Short: "Like a diary, or take your like back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.track(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			st, err := m.ToggleLike(cmd.Context(), args[0], a.session.Requester())
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(map[string]any{"diaryId": args[0], "liked": st.Liked, "likes": st.Likes})
			}
			verb := "Unliked"
			if st.Liked {
				verb = "Liked"
			}
			fmt.Fprintf(a.out, "%s %s %s (%d likes)\n", okMark(), verb, bold(st.Diary.Title), st.Likes)
			return nil
		},
	}
}

func (a *app) commentCmd() *cobra.Command {
	var anonymous bool

	cmd := &cobra.Command{
		Use:   "comment <diary-id> <text>",
		Short: "Comment on a public diary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.track(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			c, err := m.AddComment(cmd.Context(), args[0], a.session.Requester(), args[1], anonymous)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(c)
			}
			fmt.Fprintf(a.out, "%s Commented as %s (%s)\n", okMark(), bold(c.GuestName), c.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, `post as "Anonymous"; only the diary owner can delete it afterwards`)
	return cmd
}

func (a *app) uncommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uncomment <diary-id> <comment-id>",
		Short: "Delete a comment you wrote, or any comment on your diary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.track(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			if err := m.DeleteComment(cmd.Context(), args[0], args[1], a.session.Requester()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s Deleted comment %s\n", okMark(), args[1])
			return nil
		},
	}
}
