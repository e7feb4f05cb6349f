package models

import "time"

// Analysis is one analysis record per canonical video URL.
// Collection: analyses (unique url)
type Analysis struct {
	ID           string  `bson:"_id" json:"id"`
	URL          string  `bson:"url" json:"url"`
	VideoID      string  `bson:"video_id" json:"video_id"`
	SummaryID    string  `bson:"summary_id,omitempty" json:"summary_id,omitempty"`
	Title        string  `bson:"title" json:"title"`
	ThumbnailURL string  `bson:"thumbnail_url" json:"thumbnail_url"`
	Transcript   *string `bson:"transcript,omitempty" json:"transcript,omitempty"`

	ProcessingStatus Status `bson:"processing_status" json:"processing_status"`
	AnalysisStatus   Status `bson:"analysis_status" json:"analysis_status"`
	AudioStatus      Status `bson:"audio_status" json:"audio_status"`

	Summary        string          `bson:"summary" json:"summary"`
	ContentQuality *ContentQuality `bson:"content_quality,omitempty" json:"content_quality,omitempty"`
	Sentiment      *Sentiment      `bson:"sentiment,omitempty" json:"sentiment,omitempty"`
	Community      *Community      `bson:"community,omitempty" json:"community,omitempty"`
	AgeGroups      *AgeGroups      `bson:"age_groups,omitempty" json:"age_groups,omitempty"`
	Emotions       *Emotions       `bson:"emotions,omitempty" json:"emotions,omitempty"`
	Insights       *Insights       `bson:"insights,omitempty" json:"insights,omitempty"`

	TotalCommentsAnalyzed int        `bson:"total_comments_analyzed" json:"total_comments_analyzed"`
	AnalyzedAt            *time.Time `bson:"analyzed_at,omitempty" json:"analyzed_at,omitempty"`
	AnalysisModel         string     `bson:"analysis_model,omitempty" json:"analysis_model,omitempty"`
	AnalysisError         string     `bson:"analysis_error,omitempty" json:"analysis_error,omitempty"`

	AudioStoragePath string `bson:"audio_storage_path,omitempty" json:"audio_storage_path,omitempty"`
	AudioError       string `bson:"audio_error,omitempty" json:"audio_error,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type ContentQuality struct {
	EducationalValue    int    `bson:"educational_value" json:"educational_value"`
	EntertainmentValue  int    `bson:"entertainment_value" json:"entertainment_value"`
	InformationAccuracy int    `bson:"information_accuracy" json:"information_accuracy"`
	Clarity             int    `bson:"clarity" json:"clarity"`
	Depth               int    `bson:"depth" json:"depth"`
	OverallScore        int    `bson:"overall_score" json:"overall_score"`
	Category            string `bson:"category" json:"category"`
	TargetAudience      string `bson:"target_audience" json:"target_audience"`
}

// Sentiment ratios (positive, neutral, negative) always sum to 100.
type Sentiment struct {
	Positive     int `bson:"positive" json:"positive"`
	Neutral      int `bson:"neutral" json:"neutral"`
	Negative     int `bson:"negative" json:"negative"`
	OverallScore int `bson:"overall_score" json:"overall_score"`
	Intensity    int `bson:"intensity" json:"intensity"`
}

type Community struct {
	Politeness   int `bson:"politeness" json:"politeness"`
	Rudeness     int `bson:"rudeness" json:"rudeness"`
	Kindness     int `bson:"kindness" json:"kindness"`
	Toxicity     int `bson:"toxicity" json:"toxicity"`
	Constructive int `bson:"constructive" json:"constructive"`
	SelfCentered int `bson:"self_centered" json:"self_centered"`
	OffTopic     int `bson:"off_topic" json:"off_topic"`
	OverallScore int `bson:"overall_score" json:"overall_score"`
}

// AgeGroups ratios always sum to 100.
type AgeGroups struct {
	Teens     int `bson:"teens" json:"teens"`
	Twenties  int `bson:"twenties" json:"twenties"`
	Thirties  int `bson:"thirties" json:"thirties"`
	FortyPlus int `bson:"forty_plus" json:"forty_plus"`
}

// Emotions is a Plutchik distribution; ratios always sum to 100.
type Emotions struct {
	Joy          int `bson:"joy" json:"joy"`
	Trust        int `bson:"trust" json:"trust"`
	Fear         int `bson:"fear" json:"fear"`
	Surprise     int `bson:"surprise" json:"surprise"`
	Sadness      int `bson:"sadness" json:"sadness"`
	Disgust      int `bson:"disgust" json:"disgust"`
	Anger        int `bson:"anger" json:"anger"`
	Anticipation int `bson:"anticipation" json:"anticipation"`
}

type Insights struct {
	ContentSummary   string   `bson:"content_summary" json:"content_summary"`
	AudienceReaction string   `bson:"audience_reaction" json:"audience_reaction"`
	KeyInsights      []string `bson:"key_insights" json:"key_insights"`
	Recommendations  []string `bson:"recommendations" json:"recommendations"`
}

// Analysis field names used for partial updates. Both stores accept only these.
const (
	FieldTitle                 = "title"
	FieldThumbnailURL          = "thumbnail_url"
	FieldTranscript            = "transcript"
	FieldProcessingStatus      = "processing_status"
	FieldAnalysisStatus        = "analysis_status"
	FieldAudioStatus           = "audio_status"
	FieldSummary               = "summary"
	FieldContentQuality        = "content_quality"
	FieldSentiment             = "sentiment"
	FieldCommunity             = "community"
	FieldAgeGroups             = "age_groups"
	FieldEmotions              = "emotions"
	FieldInsights              = "insights"
	FieldTotalCommentsAnalyzed = "total_comments_analyzed"
	FieldAnalyzedAt            = "analyzed_at"
	FieldAnalysisModel         = "analysis_model"
	FieldAnalysisError         = "analysis_error"
	FieldAudioStoragePath      = "audio_storage_path"
	FieldAudioError            = "audio_error"
	FieldSummaryID             = "summary_id"
)

// UpdatableFields lists every column a partial update may touch.
var UpdatableFields = map[string]bool{
	FieldTitle: true, FieldThumbnailURL: true, FieldTranscript: true,
	FieldProcessingStatus: true, FieldAnalysisStatus: true, FieldAudioStatus: true,
	FieldSummary: true, FieldContentQuality: true, FieldSentiment: true,
	FieldCommunity: true, FieldAgeGroups: true, FieldEmotions: true,
	FieldInsights: true, FieldTotalCommentsAnalyzed: true, FieldAnalyzedAt: true,
	FieldAnalysisModel: true, FieldAnalysisError: true, FieldAudioStoragePath: true,
	FieldAudioError: true, FieldSummaryID: true,
}
