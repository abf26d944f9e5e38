// Package quizfile reads question sets from YAML.
//
//	title: Capitals
//	questions:
//	  - text: Capital of Sweden?
//	    options: [Oslo, Stockholm, Helsinki]
//	    correct: 1
//	    timeLimit: 20
package quizfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/thejoltjoker/crowdplay-sub000/game"
	"gopkg.in/yaml.v3"
)

// MaxQuestions caps the size of a single import.
const MaxQuestions = 100

var ErrInvalidFile = errors.New("invalid quiz file")

type File struct {
	Title     string     `yaml:"title" validate:"max=120"`
	Questions []Question `yaml:"questions" validate:"required,min=1,max=100,dive"`
}

type Question struct {
	Text      string   `yaml:"text" validate:"required"`
	Options   []string `yaml:"options" validate:"required,min=2,max=6,dive,required"`
	Correct   *int     `yaml:"correct" validate:"required,min=0"`
	TimeLimit *int     `yaml:"timeLimit" validate:"omitempty,min=1,max=600"`
}

var validate = validator.New()

// Parse decodes and validates a quiz file. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file is empty", ErrInvalidFile)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, describe(err))
	}
	for i, q := range f.Questions {
		if *q.Correct >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d: correct option %d is out of range", ErrInvalidFile, i+1, *q.Correct)
		}
	}
	return &f, nil
}

func ParseBytes(data []byte) (*File, error) {
	return Parse(bytes.NewReader(data))
}

// GameQuestions converts the file into game questions. IDs are left empty for
// the state machine to assign.
func (f *File) GameQuestions() []game.Question {
	out := make([]game.Question, 0, len(f.Questions))
	for _, q := range f.Questions {
		gq := game.Question{
			Text:          strings.TrimSpace(q.Text),
			Options:       append([]string(nil), q.Options...),
			CorrectOption: *q.Correct,
		}
		if q.TimeLimit != nil {
			limit := *q.TimeLimit
			gq.TimeLimit = &limit
		}
		out = append(out, gq)
	}
	return out
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
