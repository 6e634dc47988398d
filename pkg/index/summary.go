package index

import (
	"context"

	"github.com/pkg/errors"
)

const KeywordsPrompt = `Summarize the material using no more than five words. The response should consist only of keywords. These keywords are used to help the AI decide when to use your data to augment its responses. Examples are: 'cars and trains' or 'CS104 Introduction to Essential Software Systems and Tools'`

const QuestionsPrompt = `Generate three example questions that can be answered with the material.`

// Summary holds the two artifacts printed after a build.
type Summary struct {
	Keywords  string
	Questions string
}

func Summarize(ctx context.Context, q Querier) (*Summary, error) {
	keywords, err := q.Query(ctx, KeywordsPrompt)
	if err != nil {
		return nil, errors.Wrap(err, "keyword summary")
	}
	questions, err := q.Query(ctx, QuestionsPrompt)
	if err != nil {
		return nil, errors.Wrap(err, "example questions")
	}
	return &Summary{
		Keywords:  keywords.String(),
		Questions: questions.String(),
	}, nil
}
