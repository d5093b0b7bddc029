package news

// Item is one raw article from any news provider: a HeadlineArticle or a
// FeedEntry.
type Item interface {
	isItem()
}

// ArticleSource names the publisher of a headline.
type ArticleSource struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// HeadlineArticle is one entry of a NewsAPI top-headlines response.
type HeadlineArticle struct {
	Source      ArticleSource `json:"source"`
	Author      string        `json:"author"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	URLToImage  string        `json:"urlToImage"`
	PublishedAt string        `json:"publishedAt"`
	Content     string        `json:"content"`
}

// FeedEntry is one item of a syndication feed.
type FeedEntry struct {
	FeedTitle string
	Title     string
	Summary   string
	Link      string
	Published string
}

func (HeadlineArticle) isItem() {}
func (FeedEntry) isItem()       {}
