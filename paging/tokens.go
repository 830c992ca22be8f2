//  This file is part of the eliona project.
//  Copyright © 2022 LEICOM iTEC AG. All Rights Reserved.
//  ______ _ _
// |  ____| (_)
// | |__  | |_  ___  _ __   __ _
// |  __| | | |/ _ \| '_ \ / _` |
// | |____| | | (_) | | | | (_| |
// |______|_|_|\___/|_| |_|\__,_|
//
//  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING
//  BUT NOT LIMITED  TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
//  NON INFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM,
//  DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
//  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package paging

import "encoding/json"

const maxVisiblePages = 5

// Token is one entry of the page control: a page number or an ellipsis.
type Token struct {
	Page     int
	Ellipsis bool
}

func (t Token) MarshalJSON() ([]byte, error) {
	if t.Ellipsis {
		return json.Marshal("...")
	}
	return json.Marshal(t.Page)
}

// PageNumbers lists the page buttons for a control. Up to five pages are all
// listed. Beyond that the first and last page are always shown around a
// window of three pages near current that never reaches below 2 or above
// total-1, with an ellipsis for each gap.
func PageNumbers(current, total int) []Token {
	if total <= 0 {
		return nil
	}
	var tokens []Token
	if total <= maxVisiblePages {
		for i := 1; i <= total; i++ {
			tokens = append(tokens, Token{Page: i})
		}
		return tokens
	}

	start := max(2, current-1)
	end := min(total-1, current+1)
	if current <= 3 {
		start, end = 2, 4
	}
	if current >= total-2 {
		start, end = total-3, total-1
	}

	tokens = append(tokens, Token{Page: 1})
	if start > 2 {
		tokens = append(tokens, Token{Ellipsis: true})
	}
	for i := start; i <= end; i++ {
		tokens = append(tokens, Token{Page: i})
	}
	if end < total-1 {
		tokens = append(tokens, Token{Ellipsis: true})
	}
	return append(tokens, Token{Page: total})
}
