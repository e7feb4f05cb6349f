package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"math"
	"net/http"
	"strconv"
	"strings"

	"video-insight/collector"
	"video-insight/models"
)

// TranscriptClient reads caption tracks advertised on the watch page.
type TranscriptClient struct {
	http      *http.Client
	languages []string
	watchURL  func(videoID string) string
}

func NewTranscriptClient(httpClient *http.Client, languages []string) *TranscriptClient {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &TranscriptClient{
		http:      httpClient,
		languages: languages,
		watchURL: func(id string) string {
			return CanonicalURL(id) + "&hl=en"
		},
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// FetchTranscript returns collector.ErrNoTranscript when no track exists.
func (c *TranscriptClient) FetchTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	page, err := fetchPage(ctx, c.http, c.watchURL(videoID))
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}
	tracks, err := extractCaptionTracks(page)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, collector.ErrNoTranscript
	}

	track := pickTrack(tracks, c.languages)
	body, err := fetchPage(ctx, c.http, track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	segments, err := parseTimedText(body)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, collector.ErrNoTranscript
	}
	return &models.Transcript{VideoID: videoID, Language: track.LanguageCode, Segments: segments}, nil
}

const captionTracksKey = `"captionTracks":`

func extractCaptionTracks(page string) ([]captionTrack, error) {
	i := strings.Index(page, captionTracksKey)
	if i < 0 {
		return nil, nil
	}
	var tracks []captionTrack
	dec := json.NewDecoder(strings.NewReader(page[i+len(captionTracksKey):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decode captionTracks: %w", err)
	}
	return tracks, nil
}

// pickTrack prefers a manual track in the first matching language, then an
// auto-generated one, then whatever is listed first.
func pickTrack(tracks []captionTrack, languages []string) captionTrack {
	for _, lang := range languages {
		for _, t := range tracks {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t
			}
		}
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return t
			}
		}
	}
	return tracks[0]
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T    int64  `xml:"t,attr"`
		D    int64  `xml:"d,attr"`
		Body string `xml:",innerxml"`
	} `xml:"body>p"`
}

// parseTimedText understands both the classic <transcript><text start dur>
// format and srv3 <timedtext><body><p t d>.
func parseTimedText(body string) ([]models.TranscriptSegment, error) {
	var tt timedText
	if err := xml.Unmarshal([]byte(body), &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext: %w", err)
	}

	var segs []models.TranscriptSegment
	for _, t := range tt.Texts {
		text := cleanCaption(t.Body)
		if text == "" {
			continue
		}
		start := secondsToMs(t.Start)
		segs = append(segs, models.TranscriptSegment{StartMs: start, EndMs: start + secondsToMs(t.Dur), Text: text})
	}
	for _, p := range tt.Paragraphs {
		text := cleanCaption(stripTags(p.Body))
		if text == "" {
			continue
		}
		segs = append(segs, models.TranscriptSegment{StartMs: p.T, EndMs: p.T + p.D, Text: text})
	}
	return segs, nil
}

func secondsToMs(s string) int64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 1000))
}

func cleanCaption(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func stripTags(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
