package youtube

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	yt "google.golang.org/api/youtube/v3"

	"video-insight/config"
)

type Metadata struct {
	Title        string
	ThumbnailURL string
}

// MetadataClient reads title and thumbnail. Without a Data API service it
// falls back to the public watch page.
type MetadataClient struct {
	svc  *yt.Service
	http *http.Client
}

func NewMetadataClient(svc *yt.Service, httpClient *http.Client) *MetadataClient {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &MetadataClient{svc: svc, http: httpClient}
}

func (c *MetadataClient) FetchMetadata(ctx context.Context, videoID string) (Metadata, error) {
	if c.svc != nil {
		md, err := c.fromAPI(ctx, videoID)
		if err == nil && md.Title != "" {
			return md, nil
		}
		if err != nil {
			config.Logger.Warnf("videos.list failed for %s, falling back to watch page: %v", videoID, err)
		}
	}

	pageURL := CanonicalURL(videoID)
	page, err := fetchPage(ctx, c.http, pageURL)
	if err != nil {
		return Metadata{}, err
	}
	return ParseWatchPageMetadata(page, pageURL)
}

func (c *MetadataClient) fromAPI(ctx context.Context, videoID string) (Metadata, error) {
	resp, err := c.svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return Metadata{}, err
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return Metadata{}, nil
	}
	sn := resp.Items[0].Snippet
	md := Metadata{Title: sn.Title}
	if th := sn.Thumbnails; th != nil {
		for _, t := range []*yt.Thumbnail{th.Maxres, th.High, th.Medium, th.Standard, th.Default} {
			if t != nil && t.Url != "" {
				md.ThumbnailURL = t.Url
				break
			}
		}
	}
	return md, nil
}

// ParseWatchPageMetadata pulls title and image from a watch page, trying
// readability first and Open Graph / Twitter meta tags second.
func ParseWatchPageMetadata(htmlStr, pageURL string) (Metadata, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return Metadata{}, err
	}

	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil {
		base = u
	}

	var md Metadata
	if article, err := readability.FromDocument(doc, base); err == nil {
		md.Title = strings.TrimSpace(article.Title)
		md.ThumbnailURL = article.Image
	}

	if t := findMetaContent(doc, "property", []string{"og:title"}); t != "" {
		md.Title = t
	} else if md.Title == "" {
		md.Title = findMetaContent(doc, "name", []string{"twitter:title", "title"})
	}
	if img := findMetaContent(doc, "property", []string{"og:image", "og:image:url", "og:image:secure_url"}); img != "" {
		md.ThumbnailURL = img
	} else if md.ThumbnailURL == "" {
		md.ThumbnailURL = findMetaContent(doc, "name", []string{"twitter:image", "twitter:image:src", "thumbnail"})
	}

	md.Title = strings.TrimSuffix(md.Title, " - YouTube")
	if md.ThumbnailURL != "" && base != nil {
		if u, err := base.Parse(md.ThumbnailURL); err == nil {
			md.ThumbnailURL = u.String()
		}
	}
	return md, nil
}

func findMetaContent(root *html.Node, key string, candidates []string) string {
	candidateSet := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		candidateSet[strings.ToLower(c)] = struct{}{}
	}

	var result string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil || result != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var attrValue, content string
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case strings.ToLower(key):
					attrValue = strings.ToLower(a.Val)
				case "content":
					content = strings.TrimSpace(a.Val)
				}
			}
			if _, ok := candidateSet[attrValue]; ok && content != "" {
				result = content
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return result
}
