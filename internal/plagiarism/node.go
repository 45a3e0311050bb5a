package plagiarism

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TextNodeName - имя текстовых листьев, как в DOM.
const TextNodeName = "#text"

var (
	ErrEmptyDocument = errors.New("xml document has no root element")
	ErrMultipleRoots = errors.New("xml document has more than one root element")
	ErrStrayText     = errors.New("xml document has text outside the root element")
)

// Node - узел дерева ответа. Элемент имеет имя и детей, текстовый лист - только Text.
type Node struct {
	Name     string
	Text     string
	Children []*Node
}

func (n *Node) IsText() bool {
	return n != nil && n.Name == TextNodeName
}

// Child - первый прямой потомок-элемент с таким именем.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Find ищет элемент в глубину (pre-order), начиная с самого узла.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !cur.IsText() && cur.Name == name {
			return cur
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return nil
}

// TextContent склеивает текст всех потомков в порядке документа.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if n.IsText() {
		return n.Text
	}

	var sb strings.Builder
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.IsText() {
			sb.WriteString(cur.Text)
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return sb.String()
}

// Parse разбирает XML-ответ в дерево с корнем в элементе документа.
// Текст между элементами, состоящий только из пробелов, отбрасывается.
// Вход уже должен быть в UTF-8: объявленная в прологе кодировка игнорируется.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		root  *Node
		stack []*Node
		text  strings.Builder
	)

	// текст копится до следующего тега: CDATA и обычный текст подряд дают
	// один лист, а пробелы теряются, только если весь отрезок пустой
	flush := func() {
		if text.Len() == 0 {
			return
		}
		s := text.String()
		text.Reset()
		if strings.TrimSpace(s) == "" {
			return
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, &Node{Name: TextNodeName, Text: s})
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local}
			if len(stack) == 0 {
				if root != nil {
					return nil, ErrMultipleRoots
				}
				root = node
			} else {
				flush()
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)

		case xml.EndElement:
			flush()
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, ErrStrayText
				}
				continue
			}
			text.Write(t)
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}
