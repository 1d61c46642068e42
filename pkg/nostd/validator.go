package nostd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	enLocale "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/labstack/echo/v4"
)

// CustomValidator echo请求参数校验器
type CustomValidator struct {
	Validator *validator.Validate
	trans     ut.Translator
}

// TransInit 初始化错误信息翻译器
func (v *CustomValidator) TransInit() error {
	en := enLocale.New()
	uni := ut.New(en, en)

	trans, found := uni.GetTranslator("en")
	if !found {
		return fmt.Errorf("translator not found: en")
	}
	v.trans = trans

	return enTranslations.RegisterDefaultTranslations(v.Validator, trans)
}

// Validate 校验结构体，错误转换为400响应
func (v *CustomValidator) Validate(i interface{}) error {
	if err := v.Validator.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && v.trans != nil {
			messages := make([]string, 0, len(validationErrors))
			for _, fieldError := range validationErrors {
				messages = append(messages, fieldError.Translate(v.trans))
			}
			return echo.NewHTTPError(http.StatusBadRequest, strings.Join(messages, "; "))
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
