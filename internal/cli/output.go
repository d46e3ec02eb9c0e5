package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/Thcamm/personal-diary/internal/feed"
	"github.com/Thcamm/personal-diary/internal/model"
)

func bold(s string) string {
	return color.New(color.Bold).Sprint(s)
}

func okMark() string {
	return color.New(color.FgHiGreen).Sprint("✓")
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func (a *app) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func visibilityLabel(public bool) string {
	if public {
		return "public"
	}
	return color.New(color.FgYellow).Sprint("private")
}

// printEntries renders a listing as a table.
func (a *app) printEntries(entries []feed.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No diaries yet")
		return
	}

	table := tablewriter.NewWriter(a.out)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"ID", "Title", "Author", "Visibility", "Likes", "Comments", "Created"})

	for _, e := range entries {
		author := "?"
		if e.Author != nil {
			author = e.Author.Username
		}
		likes := strconv.Itoa(e.Diary.Likes)
		if e.LikedByViewer {
			likes += " ♥"
		}
		table.Append([]string{
			e.Diary.ID,
			e.Diary.Title,
			author,
			visibilityLabel(e.Diary.IsPublic),
			likes,
			strconv.Itoa(e.CommentCount),
			formatTime(e.Diary.CreatedAt),
		})
	}
	table.Render()
}

func (a *app) printDiary(d *model.Diary, liked bool, comments []model.Comment) {
	fmt.Fprintf(a.out, "%s  (%s)\n", bold(d.Title), visibilityLabel(d.IsPublic))
	fmt.Fprintf(a.out, "id %s, written %s", d.ID, formatTime(d.CreatedAt))
	if !d.UpdatedAt.Equal(d.CreatedAt) {
		fmt.Fprintf(a.out, ", edited %s", formatTime(d.UpdatedAt))
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, d.Content)
	fmt.Fprintln(a.out)

	heart := "♡"
	if liked {
		heart = "♥"
	}
	fmt.Fprintf(a.out, "%s %d\n", heart, d.Likes)

	if len(comments) == 0 {
		return
	}
	fmt.Fprintf(a.out, "\n%d comment(s):\n", len(comments))
	for _, c := range comments {
		fmt.Fprintf(a.out, "  [%s] %s, %s\n    %s\n",
			c.ID, bold(c.GuestName), formatTime(c.CreatedAt),
			strings.ReplaceAll(c.Content, "\n", "\n    "))
	}
}
