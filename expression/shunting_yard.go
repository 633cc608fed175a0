package expression

import (
	"fmt"

	"opzterm/errors"
	"opzterm/token"
)

const maxDepth = 50

// Linearize converts one infix expression into postfix order using the shunting-yard algorithm.
// Array references name[e1, e2, ...] become "name e1... e2... N АЭМ".
func Linearize(tokens []token.Token) ([]token.Token, error) {
	return linearizeWithDepth(tokens, 0)
}

// linearizeWithDepth линеаризует выражение с защитой от бесконечной рекурсии
func linearizeWithDepth(tokens []token.Token, depth int) ([]token.Token, error) {
	if depth > maxDepth {
		return nil, errors.NewMalformedExpression("MAX_DEPTH", fmt.Sprintf("maximum nesting depth exceeded (%d)", maxDepth)).
			WithStage(errors.StageLinearize)
	}

	output := make([]token.Token, 0, len(tokens))
	// Стек операторов и барьеров
	var stack []token.Token

	i := 0
	for i < len(tokens) {
		tok := tokens[i]

		switch tok.Kind {
		case token.KindOperand:
			// Операнд, за которым следует '[', это обращение к массиву
			if i+1 < len(tokens) && tokens[i+1].Kind == token.KindLBracket {
				access, consumed, err := resolveAccess(tokens[i:], depth)
				if err != nil {
					return nil, err
				}
				output = append(output, access...)
				i += consumed
				continue
			}
			output = append(output, tok)
			i++

		case token.KindAccess:
			// уже разрешённое обращение проходит как есть
			output = append(output, tok)
			i++

		case token.KindComma:
			// Запятая является разделителем, не оператором
			output = append(output, tok)
			i++

		case token.KindLParen:
			stack = append(stack, tok)
			i++

		case token.KindRParen:
			found := false
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.Kind == token.KindLParen {
					found = true
					break
				}
				if top.Kind == token.KindLBracket {
					return nil, unbalanced("MISMATCHED_BRACKET", "')' closes '['", tok)
				}
				output = append(output, top)
			}
			if !found {
				return nil, unbalanced("UNBALANCED_PAREN", "unexpected ')'", tok)
			}
			i++

		case token.KindLBracket:
			return nil, unbalanced("INDEX_WITHOUT_ARRAY", "'[' is not preceded by an array name", tok)

		case token.KindRBracket:
			return nil, unbalanced("UNBALANCED_BRACKET", "unexpected ']'", tok)

		case token.KindOperator, token.KindAssign:
			rank, _ := token.Priority(tok)
			// Выталкиваем операторы с приоритетом >= текущего (левая ассоциативность)
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				topRank, _ := token.Priority(top)
				if topRank == token.PriorityBarrier || topRank < rank {
					break
				}
				output = append(output, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, tok)
			i++

		default:
			return nil, errors.NewMalformedExpression("MARKER_IN_EXPRESSION", "structural marker inside an infix expression").
				WithStage(errors.StageLinearize).
				WithLine(tok.Line).
				WithToken(tok.Text)
		}
	}

	// Перемещаем оставшиеся операторы в выход
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.Kind == token.KindLParen || top.Kind == token.KindLBracket {
			return nil, unbalanced("UNBALANCED_PAREN", "missing ')'", top)
		}
		output = append(output, top)
	}

	return output, nil
}

// resolveAccess разворачивает name[...][...] начиная с имени массива.
// Возвращает постфиксные токены и число поглощённых входных токенов.
func resolveAccess(tokens []token.Token, depth int) ([]token.Token, int, error) {
	name := tokens[0]
	output := []token.Token{name}

	i := 1
	for i < len(tokens) && tokens[i].Kind == token.KindLBracket {
		end := matchingBracket(tokens, i)
		if end < 0 {
			return nil, 0, unbalanced("UNBALANCED_BRACKET", "missing ']'", tokens[i])
		}

		groups := splitTopLevel(tokens[i+1 : end])
		for _, group := range groups {
			if len(group) == 0 {
				return nil, 0, unbalanced("EMPTY_INDEX", "empty index expression", tokens[i])
			}
			// Вложенные обращения разрешаются до внешнего
			index, err := linearizeWithDepth(group, depth+1)
			if err != nil {
				return nil, 0, err
			}
			output = append(output, index...)
		}

		access := token.Access(len(groups))
		access.Line = tokens[i].Line
		output = append(output, access)
		i = end + 1
	}

	return output, i, nil
}

// matchingBracket возвращает индекс ']', парного '[' в позиции open, или -1
func matchingBracket(tokens []token.Token, open int) int {
	level := 0
	for j := open; j < len(tokens); j++ {
		switch tokens[j].Kind {
		case token.KindLBracket:
			level++
		case token.KindRBracket:
			level--
			if level == 0 {
				return j
			}
		}
	}
	return -1
}

// splitTopLevel делит тело скобок по запятым верхнего уровня
func splitTopLevel(body []token.Token) [][]token.Token {
	var groups [][]token.Token
	var current []token.Token
	level := 0
	for _, tok := range body {
		switch tok.Kind {
		case token.KindLParen, token.KindLBracket:
			level++
		case token.KindRParen, token.KindRBracket:
			level--
		case token.KindComma:
			if level == 0 {
				groups = append(groups, current)
				current = nil
				continue
			}
		}
		current = append(current, tok)
	}
	return append(groups, current)
}

func unbalanced(code, message string, tok token.Token) *errors.CompileError {
	return errors.NewMalformedExpression(code, message).
		WithStage(errors.StageLinearize).
		WithLine(tok.Line).
		WithToken(tok.String())
}
