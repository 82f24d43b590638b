package board

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is the subset of a rendered board page the client tracks.
type Page struct {
	Path      string
	Title     string
	Posts     []PostSummary
	Reactions []ReactionCount
}

// PostSummary is a post linked from the page.
type PostSummary struct {
	ID    string
	Title string
}

// ReactionCount is the rendered state of one reaction button.
type ReactionCount struct {
	TargetType TargetType
	TargetID   string
	Reaction   string
	Count      int
	Active     bool
}

var (
	postPathPattern = regexp.MustCompile(`^/post/([^/]+)/?$`)
	trailingCount   = regexp.MustCompile(`(\d+)\s*$`)
)

// solid button classes mark the reaction the current session has applied;
// the outline variants mark inactive buttons.
var activeClasses = []string{"btn-success", "btn-danger", "btn-primary", "active"}

// ParsePage extracts posts and reaction buttons from board HTML.
func ParsePage(path string, r io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse page: %w", err)
	}

	page := Page{
		Path:  normalizePath(path),
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	seen := make(map[string]bool)
	doc.Find(`a[href*="/post/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		id := postIDFromHref(href)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		page.Posts = append(page.Posts, PostSummary{
			ID:    id,
			Title: strings.Join(strings.Fields(sel.Text()), " "),
		})
	})

	doc.Find("[data-reaction-type]").Each(func(_ int, sel *goquery.Selection) {
		reaction := strings.TrimSpace(sel.AttrOr("data-reaction-type", ""))
		if reaction == "" {
			return
		}
		targetType, targetID := reactionOwner(sel)
		if targetID == "" {
			return
		}
		page.Reactions = append(page.Reactions, ReactionCount{
			TargetType: targetType,
			TargetID:   targetID,
			Reaction:   reaction,
			Count:      reactionButtonCount(sel),
			Active:     hasAnyClass(sel, activeClasses),
		})
	})

	return page, nil
}

// PostID returns the post id when path is a post-detail path.
func PostID(path string) string {
	return postIDFromHref(path)
}

func postIDFromHref(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	matches := postPathPattern.FindStringSubmatch(u.Path)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// reactionOwner resolves the entity a button belongs to, looking at the
// button first and then at the closest annotated container.
func reactionOwner(sel *goquery.Selection) (TargetType, string) {
	if id := strings.TrimSpace(sel.AttrOr("data-comment-id", "")); id != "" {
		return TargetComment, id
	}
	if id := strings.TrimSpace(sel.AttrOr("data-post-id", "")); id != "" {
		return TargetPost, id
	}
	container := sel.Closest("[data-comment-id], [data-post-id]")
	if container.Length() == 0 {
		return "", ""
	}
	if id := strings.TrimSpace(container.AttrOr("data-comment-id", "")); id != "" {
		return TargetComment, id
	}
	return TargetPost, strings.TrimSpace(container.AttrOr("data-post-id", ""))
}

func reactionButtonCount(sel *goquery.Selection) int {
	text := sel.Find(".reaction-count").First().Text()
	if strings.TrimSpace(text) == "" {
		text = sel.Text()
	}
	matches := trailingCount.FindStringSubmatch(strings.TrimSpace(text))
	if len(matches) < 2 {
		return 0
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func hasAnyClass(sel *goquery.Selection, classes []string) bool {
	for _, class := range classes {
		if sel.HasClass(class) {
			return true
		}
	}
	return false
}
