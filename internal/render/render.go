package render

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
)

// Escape заменяет символы с кодом > 127, а также ", < и > на числовые ссылки &#N;.
// Остальное, включая &, остается как есть.
func Escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r > 127 || r == '"' || r == '<' || r == '>' {
			sb.WriteString("&#")
			sb.WriteString(strconv.Itoa(int(r)))
			sb.WriteByte(';')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

type frame struct {
	node  *plagiarism.Node
	depth int
}

// Tree печатает дерево ответа с отступами: элемент - с новой строки и табами
// по глубине, текст - сразу после "имя: ". Обход через явный стек.
func Tree(root *plagiarism.Node) string {
	if root == nil {
		return ""
	}

	var sb strings.Builder
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node.IsText() {
			sb.WriteString(Escape(f.node.Text))
			continue
		}

		sb.WriteByte('\n')
		sb.WriteString(strings.Repeat("\t", f.depth))
		sb.WriteString(f.node.Name)
		sb.WriteString(": ")

		// собранный вручную лист без #text-потомка
		if len(f.node.Children) == 0 && f.node.Text != "" {
			sb.WriteString(Escape(f.node.Text))
		}

		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], depth: f.depth + 1})
		}
	}

	return sb.String()
}

// Lazy откладывает рендеринг до первого String(), удобно для zap.Stringer.
func Lazy(root *plagiarism.Node) fmt.Stringer {
	return &lazyTree{root: root}
}

type lazyTree struct {
	root *plagiarism.Node
	once sync.Once
	text string
}

func (l *lazyTree) String() string {
	l.once.Do(func() {
		l.text = Tree(l.root)
	})
	return l.text
}

func WrapTitle(title string) string {
	return "<big style='margin-left:5%'><b>" + Escape(title) + ":</b></big>"
}

func WrapNode(root *plagiarism.Node) string {
	return "<div style='overflow:auto; max-height:300px; margin-left:5%; width:90%'><pre>" +
		Tree(root) + "</pre></div><br>"
}
