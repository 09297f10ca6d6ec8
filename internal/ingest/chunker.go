package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	maxChunkTokens  = 400
	overlapTokens   = 80
	previewMaxChars = 500
)

// Chunker splits a markdown legal document into retrieval-sized chunks.
// Level 1/2 headings (acts, parts, articles) start a new chunk and are
// prefixed onto every chunk under them so retrieved text keeps its legal
// context.
type Chunker struct{}

func NewChunker() *Chunker {
	return &Chunker{}
}

func (c *Chunker) Chunk(sourceFile string, markdown string) []model.Chunk {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var chunks []model.Chunk
	var currentParts []string
	var currentTokens int
	var currentHeading string
	position := 0

	flush := func() {
		if len(currentParts) == 0 {
			return
		}
		content := strings.Join(currentParts, "\n\n")
		if currentHeading != "" {
			content = currentHeading + "\n" + content
		}
		chunks = append(chunks, model.Chunk{
			ChunkID:    chunkID(sourceFile, position),
			Text:       content,
			SourceFile: sourceFile,
			PageNumber: position,
		})
		position++

		// carry a short tail forward so provisions split mid-thought
		// still retrieve together
		if len(currentParts) > 1 {
			kept := 0
			var tail []string
			for i := len(currentParts) - 1; i >= 0; i-- {
				t := estimateTokens(currentParts[i])
				if kept+t > overlapTokens {
					break
				}
				kept += t
				tail = append([]string{currentParts[i]}, tail...)
			}
			currentParts = tail
			currentTokens = kept
		} else {
			currentParts = nil
			currentTokens = 0
		}
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			heading := string(n.Text(reader.Source()))
			if n.Level <= 2 {
				flush()
				currentParts = nil
				currentTokens = 0
				currentHeading = heading
			} else {
				currentParts = append(currentParts, heading)
				currentTokens += estimateTokens(heading)
			}
		default:
			txt := extractText(node, reader.Source())
			if txt == "" {
				continue
			}
			tokens := estimateTokens(txt)
			if currentTokens+tokens > maxChunkTokens {
				flush()
			}
			currentParts = append(currentParts, txt)
			currentTokens += tokens
		}
	}
	flush()
	return chunks
}

// chunkID is stable across re-ingestion of the same file, so repeated
// ingest runs upsert in place instead of duplicating.
func chunkID(sourceFile string, position int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", sourceFile, position)))
	return hex.EncodeToString(hash[:16])
}

// Preview bounds the chunk text for vector-index metadata; the full text
// stays in the local text store.
func Preview(text string) string {
	if len(text) <= previewMaxChars {
		return text
	}
	cut := previewMaxChars
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func estimateTokens(text string) int {
	count := 0
	for _, r := range text {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(text))
	if count == 0 && len(text) > 0 {
		return 1
	}
	return count
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Type() == ast.TypeBlock || node.Type() == ast.TypeInline {
			if node.Kind() == ast.KindText {
				sb.Write(node.(*ast.Text).Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
