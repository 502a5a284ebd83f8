package annotate

import "github.com/buxback/gild/annotate/internal/inject"

// DOM identifiers the engine plants in host pages, re-exported for
// consumers that manipulate the live page (artifact appliers, tests).
const (
	MarkerAttr         = inject.MarkerAttr
	BadgeClass         = inject.BadgeClass
	BadgeWrapperClass  = inject.BadgeWrapperClass
	ButtonID           = inject.ButtonID
	ButtonWrapperClass = inject.ButtonWrapperClass
	PassButtonClass    = inject.PassButtonClass
	ModalID            = inject.ModalID
	CopyButtonClass    = inject.CopyButtonClass
)
