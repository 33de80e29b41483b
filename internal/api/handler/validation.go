package handler

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验器注册自定义规则：
//   - route_tag: 线路标签（long_haul | cross_border | city | regional）
//
// 注册失败说明规则定义有误，启动时直接 panic
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("gin 校验引擎不是 validator/v10，无法注册自定义规则")
		}
		mustRegister(v, "route_tag", validRouteTag)
	})
}

func validRouteTag(fl validator.FieldLevel) bool {
	return model.ValidRoute(fl.Field().String())
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("注册校验规则 %q 失败: %v", tag, err))
	}
}
