package web

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
	"github.com/kitbuilder587/copyscape-bot/internal/render"
)

const (
	ExampleURL      = "http://www.copyscape.com/example.html"
	ExampleEncoding = "ISO-8859-1"
	ExampleTitle    = "Extract from Declaration of Independence"
	ExampleID       = "EXAMPLE_1234"
)

// ExampleText - отрывок из Декларации независимости, на нем показываются текстовые запросы.
var ExampleText = strings.Join([]string{
	"We hold these truths to be self-evident, that all men are created equal, that they are endowed by their ",
	"Creator with certain unalienable rights, that among these are Life, Liberty, and the pursuit of Happiness. That to ",
	"secure these rights, Governments are instituted among Men, deriving their just powers from the consent of the ",
	"governed. That whenever any Form of Government becomes destructive of these ends, it is the Right of the People to ",
	"alter or to abolish it, and to institute new Government, laying its foundation on such principles and organizing ",
	"its powers in such form, as to them shall seem most likely to effect their Safety and Happiness. Prudence, indeed, ",
	"will dictate that Governments long established should not be changed for light and transient causes; and ",
	"accordingly all experience hath shown, that mankind are more disposed to suffer, while evils are sufferable, than ",
	"to right themselves by abolishing the forms to which they are accustomed. But when a long train of abuses and ",
	"usurpations, pursuing invariably the same Object evinces a design to reduce them under absolute Despotism, it is ",
	"their right, it is their duty, to throw off such Government, and to provide new Guards for their future security. ",
	"Such has been the patient sufferance of these Colonies; and such is now the necessity which constrains them to ",
	"alter their former Systems of Government. The history of the present King of Great Britain is a history of ",
	"repeated injuries and usurpations, all having in direct object the establishment of an absolute Tyranny over these ",
	"States. To prove this, let Facts be submitted to a candid world. He has refused his Assent to Laws, the most ",
	"wholesome and necessary for the public good. ",
	"We, therefore, the Representatives of the United States of America, in General Congress, Assembled, ",
	"appealing to the Supreme Judge of the world for the rectitude of our intentions, do, in the Name, and by Authority ",
	"of the good People of these Colonies, solemnly publish and declare, That these United Colonies are, and of Right ",
	"ought to be free and independent states; that they are Absolved from all Allegiance to the British Crown, and that ",
	"all political connection between them and the State of Great Britain, is and ought to be totally dissolved; and ",
	"that as Free and Independent States, they have full Power to levy War, conclude Peace, contract Alliances, ",
	"establish Commerce, and to do all other Acts and Things which Independent States may of right do. And for the ",
	"support of this Declaration, with a firm reliance on the Protection of Divine Providence, we mutually pledge to ",
	"each other our Lives, our Fortunes, and our sacred Honor.",
}, "")

type exampleStep struct {
	title string
	call  func(ctx context.Context, c plagiarism.Checker) (*plagiarism.Response, error)
}

// независимые запросы, выполняются параллельно
var independentExamples = []exampleStep{
	{"Response for a simple URL Internet search", func(ctx context.Context, c plagiarism.Checker) (*plagiarism.Response, error) {
		return c.URLSearchInternet(ctx, ExampleURL, 0)
	}},
	{"Response for a URL Internet search with full comparisons for the first two results", func(ctx context.Context, c plagiarism.Checker) (*plagiarism.Response, error) {
		return c.URLSearchInternet(ctx, ExampleURL, 2)
	}},
	{"Response for a simple text Internet search", func(ctx context.Context, c plagiarism.Checker) (*plagiarism.Response, error) {
		return c.TextSearchInternet(ctx, ExampleText, ExampleEncoding, 0)
	}},
	{"Response for a text Internet search with full comparisons for the first two results", func(ctx context.Context, c plagiarism.Checker) (*plagiarism.Response, error) {
		return c.TextSearchInternet(ctx, ExampleText, ExampleEncoding, 2)
	}},
	{"Response for a check balance request", func(ctx context.Context, c plagiarism.Checker) (*plagiarism.Response, error) {
		return c.CheckBalance(ctx)
	}},
}

// RunExamples выполняет демонстрационную последовательность и возвращает HTML.
// Сбой отдельного запроса дает пустой блок, страница строится всегда.
// Приватный индекс меняется по порядку: добавление, поиск, удаление по handle.
func RunExamples(ctx context.Context, checker plagiarism.Checker) string {
	var sb strings.Builder

	results := make([]*plagiarism.Response, len(independentExamples))
	g, gctx := errgroup.WithContext(ctx)
	for i, step := range independentExamples {
		g.Go(func() error {
			resp, _ := step.call(gctx, checker)
			results[i] = resp
			return nil
		})
	}
	g.Wait()

	for i, step := range independentExamples {
		writeExample(&sb, step.title, results[i])
	}

	resp, _ := checker.URLAddToPrivate(ctx, ExampleURL, "")
	writeExample(&sb, "Response for a URL add to private index request", resp)

	resp, _ = checker.TextAddToPrivate(ctx, ExampleText, ExampleEncoding, ExampleTitle, ExampleID)
	writeExample(&sb, "Response for a text add to private index request", resp)
	handle := handleOf(resp)

	resp, _ = checker.URLSearchPrivate(ctx, ExampleURL, 0)
	writeExample(&sb, "Response for a URL private index search", resp)

	resp, _ = checker.DeleteFromPrivate(ctx, handle)
	writeExample(&sb, "Response for a delete from private index request", resp)

	resp, _ = checker.TextSearchInternetAndPrivate(ctx, ExampleText, ExampleEncoding, 1)
	writeExample(&sb, "Response for a text search of both Internet and private index with full comparisons for the first result (of each type)", resp)

	return sb.String()
}

func writeExample(sb *strings.Builder, title string, resp *plagiarism.Response) {
	sb.WriteString(render.WrapTitle(title))
	var root *plagiarism.Node
	if resp != nil {
		root = resp.Root
	}
	sb.WriteString(render.WrapNode(root))
}

// handle лежит прямым потомком корня ответа pindexadd
func handleOf(resp *plagiarism.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Root.Child("handle").TextContent()
}
