package datasets

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"
)

// GSM8KExample is one question/answer pair. Answers carry the dataset's
// worked reasoning followed by the final number on a "#### n" line.
type GSM8KExample struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LoadGSM8K loads the GSM8K test split, downloading it on first use.
func LoadGSM8K(ctx context.Context) ([]GSM8KExample, error) {
	datasetPath, err := EnsureDataset("gsm8k")
	if err != nil {
		return nil, err
	}
	return LoadGSM8KFile(ctx, datasetPath)
}

// LoadGSM8KFile reads question/answer pairs from a GSM8K parquet file.
func LoadGSM8KFile(ctx context.Context, path string) ([]GSM8KExample, error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to open parquet file"),
			errors.Fields{"path": path},
		)
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to create arrow reader")
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to read parquet schema")
	}
	questionIndices := schema.FieldIndices("question")
	answerIndices := schema.FieldIndices("answer")
	if len(questionIndices) == 0 || len(answerIndices) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidResponse, "dataset is missing the question and answer columns"),
			errors.Fields{"path": path},
		)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to read parquet table")
	}
	defer table.Release()

	questions, err := stringColumn(table.Column(questionIndices[0]))
	if err != nil {
		return nil, err
	}
	answers, err := stringColumn(table.Column(answerIndices[0]))
	if err != nil {
		return nil, err
	}
	if len(questions) != len(answers) {
		return nil, errors.New(errors.InvalidResponse, "question and answer columns have different lengths")
	}

	examples := make([]GSM8KExample, len(questions))
	for i := range questions {
		examples[i] = GSM8KExample{Question: questions[i], Answer: answers[i]}
	}

	logging.GetLogger().Debug(ctx, "loaded %d GSM8K examples from %s", len(examples), path)
	return examples, nil
}

// stringColumn flattens a chunked string column.
func stringColumn(col *arrow.Column) ([]string, error) {
	chunked := col.Data()
	out := make([]string, 0, chunked.Len())
	for _, chunk := range chunked.Chunks() {
		strs, ok := chunk.(*array.String)
		if !ok {
			return nil, errors.WithFields(
				errors.New(errors.InvalidResponse, "column is not a string column"),
				errors.Fields{"column": col.Name(), "type": chunk.DataType().Name()},
			)
		}
		for i := 0; i < strs.Len(); i++ {
			out = append(out, strs.Value(i))
		}
	}
	return out, nil
}

// Queries converts examples into pipeline queries. The raw answer text is
// kept as the expected value; the evaluation oracle extracts the final
// number from it.
func Queries(examples []GSM8KExample) []ace.Query {
	queries := make([]ace.Query, len(examples))
	for i, ex := range examples {
		queries[i] = ace.Query{
			ID:       fmt.Sprintf("gsm8k-%d", i+1),
			Text:     ex.Question,
			Expected: ex.Answer,
		}
	}
	return queries
}
