// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package series

import (
	"math"

	"github.com/juju/errors"
	"github.com/wangjohn/quickselect"
)

// ExactMedian selects the median of values without a full sort. The input is
// copied, so the caller's slice keeps its order.
func ExactMedian(values []float64) (float64, error) {
	n := len(values)
	if n == 0 {
		return math.NaN(), ErrInvalidDataset
	}
	if n == 1 {
		return values[0], nil
	}

	data := make([]float64, n)
	copy(data, values)

	length := n/2 + 1
	if err := quickselect.Float64QuickSelect(data, length); err != nil {
		return math.NaN(), errors.Trace(err)
	}
	top, secondTop := math.Inf(-1), math.Inf(-1)
	for _, val := range data[0:length] {
		if val > top {
			secondTop = top
			top = val
		} else if val > secondTop {
			secondTop = val
		}
	}
	if n%2 == 1 {
		return top, nil
	}
	return (top + secondTop) / 2, nil
}
