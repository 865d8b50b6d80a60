package main

import "time"

// GPIO character device v2 interface (from <linux/gpio.h>)
const (
	GPIO_V2_GET_LINE_IOCTL        = 0xc250b407
	GPIO_V2_LINE_GET_VALUES_IOCTL = 0xc010b40e

	GPIO_V2_LINE_FLAG_INPUT        = 1 << 2
	GPIO_V2_LINE_FLAG_EDGE_RISING  = 1 << 4
	GPIO_V2_LINE_FLAG_EDGE_FALLING = 1 << 5
	GPIO_V2_LINE_FLAG_BIAS_PULL_UP = 1 << 8

	GPIO_V2_LINE_ATTR_ID_DEBOUNCE = 3

	GPIO_V2_LINE_EVENT_RISING_EDGE  = 1
	GPIO_V2_LINE_EVENT_FALLING_EDGE = 2

	GPIO_V2_LINES_MAX          = 64
	GPIO_MAX_NAME_SIZE         = 32
	GPIO_V2_LINE_NUM_ATTRS_MAX = 10
)

// Direction tags used in dispatch results and on the wire
const (
	directionClockwise        = "clockwise"
	directionCounterclockwise = "counterclockwise"
)

// Rotation classification defaults
const (
	defaultBurstThreshold = 4 // quadrature steps per burst (one detent)

	fastestBurstGapS = 0.05 // elapsed clamp lower bound (s)
	slowestBurstGapS = 0.5  // elapsed clamp upper bound (s)

	maxRepeatCount       = 10 // repeat count at the fast bound
	boostRepeatThreshold = 5  // raw counts above this classify as boosted

	// Fitted so the curve meets 10 at the fast bound and 1 at the slow
	// bound without a jump.
	defaultCurveScale    = 2.223
	defaultCurveExponent = 1.4
	defaultCurveOffset   = -0.329
)

// Button defaults
const (
	defaultHoldTime       = 3 * time.Second      // nominal long-press hold time
	defaultButtonDebounce = 5 * time.Millisecond // kernel debounce on the button line
)

// Hardware defaults (Raspberry Pi header, BCM numbering)
const (
	defaultChipPath  = "/dev/gpiochip0"
	defaultPinA      = 22
	defaultPinB      = 23
	defaultPinButton = 24
)

// Daemon defaults
const (
	defaultBoostStep      = 5                // counter step for boosted handlers
	defaultWebhookTimeout = 3 * time.Second  // per-request outbound webhook timeout
	defaultTickHz         = 10               // daemon loop housekeeping tick rate
	defaultEventBuffer    = 64               // daemon events channel capacity
)
