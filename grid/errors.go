package grid

import (
	"errors"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// ErrIndexOutOfRange is returned for any bank/channel/step coordinate
// outside the configured size. Navigation never clamps.
var ErrIndexOutOfRange = errors.New("index out of range")

func outOfRange(what string, idx, limit int) error {
	return fault.Wrap(ErrIndexOutOfRange,
		fmsg.With(fmt.Sprintf("%s %d not in [0,%d)", what, idx, limit)),
		ftag.With(ftag.InvalidArgument),
	)
}
