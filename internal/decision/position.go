package decision

import "fmt"

type Position string

const (
	PositionAgree    Position = "agree"
	PositionDisagree Position = "disagree"
	PositionAbstain  Position = "abstain"
	PositionBlock    Position = "block"
	PositionYes      Position = "yes"
	PositionNo       Position = "no"
)

var allowedPositions = map[Method][]Position{
	MethodConsent:  {PositionAgree, PositionDisagree, PositionAbstain, PositionBlock},
	MethodMajority: {PositionYes, PositionNo, PositionAbstain},
}

// AllowedPositions 返回投票方式对应的可选立场，顺序固定
func AllowedPositions(m Method) ([]Position, error) {
	ps, ok := allowedPositions[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, m)
	}
	out := make([]Position, len(ps))
	copy(out, ps)
	return out, nil
}

// ParsePosition 精确匹配该投票方式的立场集合，不做大小写和空白归一化
func ParsePosition(m Method, s string) (Position, error) {
	ps, err := AllowedPositions(m)
	if err != nil {
		return "", err
	}
	for _, p := range ps {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not allowed for %s", ErrInvalidPosition, s, m)
}
