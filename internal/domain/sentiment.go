package domain

// Sentiment is the categorical market direction attached to a prediction.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// String returns the string representation of Sentiment.
func (s Sentiment) String() string {
	return string(s)
}

// IsValid checks if the sentiment is a valid value.
func (s Sentiment) IsValid() bool {
	return s == SentimentBullish || s == SentimentBearish || s == SentimentNeutral
}
