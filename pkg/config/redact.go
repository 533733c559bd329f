/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"reflect"
	"strings"
)

const redacted = "*****"

// Redact returns a map view of cfg with every field tagged sensitive:"true"
// masked, suitable for logging the effective configuration.
func Redact(cfg interface{}) map[string]interface{} {
	v := reflect.ValueOf(cfg)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return map[string]interface{}{}
		}

		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return map[string]interface{}{}
	}

	out, _ := redactValue(v).(map[string]interface{})

	return out
}

func redactValue(v reflect.Value) interface{} {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}

		return redactValue(v.Elem())
	case reflect.Struct:
		return redactStruct(v)
	case reflect.Slice, reflect.Array:
		items := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = redactValue(v.Index(i))
		}

		return items
	default:
		if s, ok := v.Interface().(interface{ String() string }); ok {
			return s.String()
		}

		return v.Interface()
	}
}

func redactStruct(v reflect.Value) map[string]interface{} {
	t := v.Type()
	out := make(map[string]interface{}, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}

		if name == "" {
			name = f.Name
		}

		if f.Tag.Get("sensitive") == "true" {
			if !v.Field(i).IsZero() {
				out[name] = redacted
			}

			continue
		}

		out[name] = redactValue(v.Field(i))
	}

	return out
}
