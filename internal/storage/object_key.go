package storage

import (
	"mime"
	"path"
	"strings"
)

const (
	defaultCategory  = "misc"
	defaultName      = "object"
	defaultExtension = "json"
)

// keySegment 只保留小写字母、数字、'-' 和 '_'，其余字符（包括 '/' 和 '.'）全部丢弃
func keySegment(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, strings.TrimSpace(value))
}

func keyExtension(ext string) string {
	if cleaned := keySegment(strings.TrimPrefix(strings.TrimSpace(ext), ".")); cleaned != "" {
		return cleaned
	}
	return defaultExtension
}

// objectKey 拼出 category/owner/name.ext；owner 为空时省略
func objectKey(obj Object) string {
	category := keySegment(obj.Category)
	if category == "" {
		category = defaultCategory
	}
	name := strings.Trim(keySegment(strings.ReplaceAll(obj.Name, " ", "-")), "-_")
	if name == "" {
		name = defaultName
	}

	segments := make([]string, 0, 3)
	segments = append(segments, category)
	if owner := keySegment(obj.Owner); owner != "" {
		segments = append(segments, owner)
	}
	segments = append(segments, name+"."+keyExtension(obj.Extension))
	return path.Join(segments...)
}

func contentTypeFor(ext string) string {
	if typeName := mime.TypeByExtension("." + keyExtension(ext)); typeName != "" {
		return typeName
	}
	return "application/octet-stream"
}

// withPrefix 把配置的前缀（可带首尾斜杠）加在 key 前面
func withPrefix(prefix, key string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
